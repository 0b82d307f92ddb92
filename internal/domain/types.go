package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                int64     `json:"id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	PasswordHash      string    `json:"-"`
	Role              string    `json:"role"`
	ProfilePictureKey string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Locker struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	QRCodeKey   string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Aggregates, populated by list queries.
	ItemCount     int `json:"itemCount"`
	TotalQuantity int `json:"totalQuantity"`
}

type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	ItemCount     int `json:"itemCount"`
	TotalQuantity int `json:"totalQuantity"`
}

type Item struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	CategoryID  int64     `json:"categoryId"`
	LockerID    int64     `json:"lockerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Joined fields.
	CategoryName string `json:"categoryName"`
	LockerCode   string `json:"lockerCode"`
	LockerName   string `json:"lockerName"`
}

// ItemFilter narrows an item listing. Zero values mean "any".
type ItemFilter struct {
	CategoryID int64
	LockerID   int64
	Query      string
}

type Photo struct {
	ID         int64     `json:"id"`
	LockerID   int64     `json:"lockerId"`
	StorageKey string    `json:"-"`
	MimeType   string    `json:"mimeType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DeleteAction tells a category or locker delete what to do with the items
// that still reference it.
type DeleteAction string

const (
	DeleteActionNone   DeleteAction = ""
	DeleteActionMove   DeleteAction = "move"
	DeleteActionDelete DeleteAction = "delete"
)

type DeleteOptions struct {
	Action   DeleteAction
	TargetID int64
}
