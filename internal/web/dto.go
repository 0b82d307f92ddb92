package web

import (
	"fmt"

	"github.com/vbonduro/lockerinv/internal/domain"
)

type userJSON struct {
	*domain.User
	ProfilePicture string `json:"profilePicture"`
}

func toUser(u *domain.User) userJSON {
	out := userJSON{User: u}
	if u.ProfilePictureKey != "" {
		out.ProfilePicture = fileURL(u.ProfilePictureKey)
	}
	return out
}

func toUsers(users []*domain.User) []userJSON {
	out := make([]userJSON, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

type lockerJSON struct {
	*domain.Locker
	QRCodeURL string `json:"qrCodeUrl"`
}

func toLocker(l *domain.Locker) lockerJSON {
	return lockerJSON{Locker: l, QRCodeURL: fmt.Sprintf("/api/lockers/%d/qr", l.ID)}
}

func toLockers(lockers []*domain.Locker) []lockerJSON {
	out := make([]lockerJSON, 0, len(lockers))
	for _, l := range lockers {
		out = append(out, toLocker(l))
	}
	return out
}

type photoJSON struct {
	*domain.Photo
	URL string `json:"url"`
}

func toPhoto(p *domain.Photo) photoJSON {
	return photoJSON{Photo: p, URL: fmt.Sprintf("/api/lockers/%d/photo", p.LockerID)}
}

func fileURL(key string) string {
	return "/files/" + key
}

// orEmpty keeps empty lists encoding as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
