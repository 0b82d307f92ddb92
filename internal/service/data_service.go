package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"

	"github.com/vbonduro/lockerinv/internal/domain"
	"github.com/vbonduro/lockerinv/internal/photostore"
	"github.com/vbonduro/lockerinv/internal/qr"
	"github.com/vbonduro/lockerinv/internal/store"
	"github.com/vbonduro/lockerinv/internal/telemetry"
	"github.com/vbonduro/lockerinv/internal/validation"
)

const (
	SnapshotVersion = "1.0"

	FormatJSON = "json"
	FormatYAML = "yaml"

	msgInvalidFile    = "Format file tidak valid: "
	msgEmptySelection = "Pilih minimal satu jenis data untuk export"
)

// Snapshot is the export/import document. Data is a pointer so a document
// without a data key can be told apart from an empty one.
type Snapshot struct {
	Version    string        `json:"version" yaml:"version"`
	ExportedAt string        `json:"exportedAt" yaml:"exportedAt"`
	Data       *SnapshotData `json:"data" yaml:"data"`
}

type SnapshotData struct {
	Lockers    []SnapshotLocker   `json:"lockers,omitempty" yaml:"lockers,omitempty"`
	Categories []SnapshotCategory `json:"categories,omitempty" yaml:"categories,omitempty"`
	Items      []SnapshotItem     `json:"items,omitempty" yaml:"items,omitempty"`
}

type SnapshotLocker struct {
	ID          int64  `json:"id" yaml:"id"`
	Code        string `json:"code" yaml:"code"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	CreatedAt   string `json:"createdAt" yaml:"createdAt"`
}

type SnapshotCategory struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	CreatedAt   string `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   string `json:"updatedAt" yaml:"updatedAt"`
}

type SnapshotItem struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Quantity     int    `json:"quantity" yaml:"quantity"`
	Description  string `json:"description" yaml:"description"`
	CategoryID   int64  `json:"categoryId" yaml:"categoryId"`
	CategoryName string `json:"categoryName" yaml:"categoryName"`
	LockerID     int64  `json:"lockerId" yaml:"lockerId"`
	LockerCode   string `json:"lockerCode" yaml:"lockerCode"`
	CreatedAt    string `json:"createdAt" yaml:"createdAt"`
}

// Include selects which entity types an export or import touches.
type Include struct {
	Lockers    bool
	Categories bool
	Items      bool
}

var IncludeAll = Include{Lockers: true, Categories: true, Items: true}

func (in Include) Empty() bool {
	return !in.Lockers && !in.Categories && !in.Items
}

// ParseInclude reads a comma-separated include list. An absent parameter
// selects everything; a present one that names nothing is rejected.
func ParseInclude(raw string, present bool) (Include, error) {
	if !present {
		return IncludeAll, nil
	}
	var in Include
	for _, part := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "lockers":
			in.Lockers = true
		case "categories":
			in.Categories = true
		case "items":
			in.Items = true
		}
	}
	if in.Empty() {
		return in, validation.New("include", msgEmptySelection)
	}
	return in, nil
}

type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

func ParseImportMode(raw string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ImportMerge:
		return ImportMerge, nil
	case ImportReplace:
		return ImportReplace, nil
	default:
		return "", validation.New("mode", "Mode import harus merge atau replace")
	}
}

// ParseSnapshot decodes a snapshot document. format may be empty, in which
// case JSON is assumed for documents starting with '{' and YAML otherwise.
func ParseSnapshot(data []byte, format string) (*Snapshot, error) {
	if format == "" {
		format = FormatYAML
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			format = FormatJSON
		}
	}

	var snap Snapshot
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &snap)
	case FormatYAML:
		err = yaml.Unmarshal(data, &snap)
	default:
		return nil, validation.New("format", "Format harus json atau yaml")
	}
	if err != nil {
		return nil, validation.New("file", msgInvalidFile+err.Error())
	}
	if snap.Data == nil {
		return nil, validation.New("file", msgInvalidFile+"properti data tidak ditemukan")
	}
	return &snap, nil
}

// Encode renders the snapshot in the given format.
func (s *Snapshot) Encode(format string) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(s)
	case "", FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	default:
		return nil, validation.New("format", "Format harus json atau yaml")
	}
}

type CodeRemap struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ImportSummary struct {
	Mode              ImportMode    `json:"mode"`
	CategoriesCreated int           `json:"categoriesCreated"`
	CategoriesReused  int           `json:"categoriesReused"`
	LockersCreated    int           `json:"lockersCreated"`
	LockersReused     int           `json:"lockersReused"`
	LockersRemapped   []CodeRemap   `json:"lockersRemapped"`
	ItemsCreated      int           `json:"itemsCreated"`
	ItemsMerged       int           `json:"itemsMerged"`
	Deleted           *ResetSummary `json:"deleted,omitempty"`
}

type ResetSummary struct {
	Items      int `json:"items"`
	Lockers    int `json:"lockers"`
	Categories int `json:"categories"`
}

type DataService struct {
	stores *store.Stores
	tx     transactor
	qr     qrAttacher
	logger *slog.Logger
	intn   func(int) int
	now    func() time.Time
}

func NewDataService(stores *store.Stores, tx transactor, photoStg photostore.PhotoStore, encoder *qr.Encoder, logger *slog.Logger) *DataService {
	return &DataService{
		stores: stores,
		tx:     tx,
		qr:     qrAttacher{blobSweeper: blobSweeper{blobs: photoStg, logger: logger}, encoder: encoder},
		logger: logger,
		intn:   randomIntn,
		now:    time.Now,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func (s *DataService) Export(ctx context.Context, userID int64, include Include) (*Snapshot, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "data.export")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("include.lockers", include.Lockers),
		attribute.Bool("include.categories", include.Categories),
		attribute.Bool("include.items", include.Items),
	)

	if include.Empty() {
		return nil, validation.New("include", msgEmptySelection)
	}

	data := &SnapshotData{}
	if include.Lockers {
		lockers, err := s.stores.Lockers.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		data.Lockers = make([]SnapshotLocker, 0, len(lockers))
		for _, l := range lockers {
			data.Lockers = append(data.Lockers, SnapshotLocker{
				ID:          l.ID,
				Code:        l.Code,
				Name:        l.Name,
				Description: l.Description,
				CreatedAt:   formatTime(l.CreatedAt),
			})
		}
	}
	if include.Categories {
		categories, err := s.stores.Categories.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		data.Categories = make([]SnapshotCategory, 0, len(categories))
		for _, c := range categories {
			data.Categories = append(data.Categories, SnapshotCategory{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				CreatedAt:   formatTime(c.CreatedAt),
				UpdatedAt:   formatTime(c.UpdatedAt),
			})
		}
	}
	if include.Items {
		items, err := s.stores.Items.List(ctx, userID, domain.ItemFilter{})
		if err != nil {
			return nil, err
		}
		data.Items = make([]SnapshotItem, 0, len(items))
		for _, i := range items {
			data.Items = append(data.Items, SnapshotItem{
				ID:           i.ID,
				Name:         i.Name,
				Quantity:     i.Quantity,
				Description:  i.Description,
				CategoryID:   i.CategoryID,
				CategoryName: i.CategoryName,
				LockerID:     i.LockerID,
				LockerCode:   i.LockerCode,
				CreatedAt:    formatTime(i.CreatedAt),
			})
		}
	}

	span.SetAttributes(
		attribute.Int("lockers", len(data.Lockers)),
		attribute.Int("categories", len(data.Categories)),
		attribute.Int("items", len(data.Items)),
	)
	return &Snapshot{Version: SnapshotVersion, ExportedAt: formatTime(s.now()), Data: data}, nil
}

// Import reconciles a snapshot with the user's data in one transaction. In
// replace mode the user's items, lockers and categories are wiped first.
func (s *DataService) Import(ctx context.Context, userID int64, snap *Snapshot, mode ImportMode, include Include) (*ImportSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "data.import")
	defer span.End()
	span.SetAttributes(attribute.String("mode", string(mode)))

	if snap == nil || snap.Data == nil {
		return nil, validation.New("file", msgInvalidFile+"properti data tidak ditemukan")
	}
	if include.Empty() {
		return nil, validation.New("include", "Pilih minimal satu jenis data untuk import")
	}

	var (
		summary  *ImportSummary
		created  []*domain.Locker
		wipeKeys []string
	)
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		summary = &ImportSummary{Mode: mode, LockersRemapped: []CodeRemap{}}
		if mode == ImportReplace {
			deleted, keys, err := wipe(ctx, st, userID)
			if err != nil {
				return err
			}
			summary.Deleted = deleted
			wipeKeys = keys
		}

		imp := &importer{st: st, userID: userID, summary: summary, intn: s.intn}
		if err := imp.run(ctx, snap.Data, include); err != nil {
			return err
		}
		created = imp.created
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		return nil, err
	}

	s.qr.sweep(ctx, wipeKeys...)
	for _, l := range created {
		if err := s.qr.attach(ctx, s.stores.Lockers, l); err != nil {
			s.logger.Warn("failed to attach qr image", "locker_id", l.ID, "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("items.created", summary.ItemsCreated),
		attribute.Int("items.merged", summary.ItemsMerged),
		attribute.Int("lockers.remapped", len(summary.LockersRemapped)),
	)
	s.logger.Info("data imported",
		"user_id", userID,
		"mode", string(mode),
		"categories_created", summary.CategoriesCreated,
		"lockers_created", summary.LockersCreated,
		"lockers_remapped", len(summary.LockersRemapped),
		"items_created", summary.ItemsCreated,
		"items_merged", summary.ItemsMerged,
	)
	return summary, nil
}

// Reset wipes the user's items, lockers and categories along with their
// blobs.
func (s *DataService) Reset(ctx context.Context, userID int64) (*ResetSummary, error) {
	var (
		summary *ResetSummary
		keys    []string
	)
	err := s.tx.WithinTx(ctx, func(st *store.Stores) error {
		var err error
		summary, keys, err = wipe(ctx, st, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.qr.sweep(ctx, keys...)
	s.logger.Info("data reset", "user_id", userID, "items", summary.Items, "lockers", summary.Lockers, "categories", summary.Categories)
	return summary, nil
}

// wipe deletes in FK order and returns the blob keys to remove after commit.
func wipe(ctx context.Context, st *store.Stores, userID int64) (*ResetSummary, []string, error) {
	keys, err := st.Lockers.BlobKeys(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	var sum ResetSummary
	if sum.Items, err = st.Items.DeleteAllByUser(ctx, userID); err != nil {
		return nil, nil, err
	}
	if sum.Lockers, err = st.Lockers.DeleteAllByUser(ctx, userID); err != nil {
		return nil, nil, err
	}
	if sum.Categories, err = st.Categories.DeleteAllByUser(ctx, userID); err != nil {
		return nil, nil, err
	}
	return &sum, keys, nil
}

// importer holds the id maps built while reconciling one snapshot.
type importer struct {
	st      *store.Stores
	userID  int64
	summary *ImportSummary
	intn    func(int) int

	usedCodes    map[string]bool
	categoryIDs  map[int64]int64
	lockerIDs    map[int64]int64
	lockerCodes  map[string]int64
	fallbackLock *domain.Locker
	created      []*domain.Locker
}

func (imp *importer) run(ctx context.Context, data *SnapshotData, include Include) error {
	imp.categoryIDs = make(map[int64]int64)
	imp.lockerIDs = make(map[int64]int64)
	imp.lockerCodes = make(map[string]int64)

	used, err := imp.st.Lockers.Codes(ctx, imp.userID)
	if err != nil {
		return err
	}
	imp.usedCodes = used

	if include.Categories {
		for _, c := range data.Categories {
			if err := imp.category(ctx, c); err != nil {
				return err
			}
		}
	}
	if include.Lockers {
		for _, l := range data.Lockers {
			if err := imp.locker(ctx, l); err != nil {
				return err
			}
		}
	}
	if include.Items {
		for _, i := range data.Items {
			if err := imp.item(ctx, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// tooLong rejects the whole import when a name would not pass the regular
// create validation.
func tooLong(kind, name string, limit int) error {
	if utf8.RuneCountInString(name) <= limit {
		return nil
	}
	return validation.New("file", fmt.Sprintf("%snama %s melebihi %d karakter", msgInvalidFile, kind, limit))
}

func (imp *importer) category(ctx context.Context, c SnapshotCategory) error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return nil
	}
	if err := tooLong("kategori", name, maxNameLength); err != nil {
		return err
	}
	desc := strings.TrimSpace(c.Description)

	existing, err := imp.st.Categories.GetByName(ctx, imp.userID, name)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Description == "" && desc != "" {
			if err := imp.st.Categories.Update(ctx, imp.userID, existing.ID, existing.Name, desc); err != nil {
				return err
			}
		}
		imp.categoryIDs[c.ID] = existing.ID
		imp.summary.CategoriesReused++
		return nil
	}

	created, err := imp.st.Categories.Create(ctx, imp.userID, name, desc)
	if err != nil {
		return err
	}
	imp.categoryIDs[c.ID] = created.ID
	imp.summary.CategoriesCreated++
	return nil
}

func (imp *importer) locker(ctx context.Context, l SnapshotLocker) error {
	raw := strings.TrimSpace(l.Code)
	code := normalizeCode(raw)
	name := strings.TrimSpace(l.Name)
	if name == "" {
		name = FallbackLockerName
	}
	if err := tooLong("loker", name, maxNameLength); err != nil {
		return err
	}
	desc := strings.TrimSpace(l.Description)

	remap := !qr.CodePattern.MatchString(code)
	if !remap {
		existing, err := imp.st.Lockers.GetByCode(ctx, imp.userID, code)
		if err != nil {
			return err
		}
		if existing != nil {
			if strings.EqualFold(existing.Name, name) {
				imp.mapLocker(l.ID, code, existing.ID)
				imp.summary.LockersReused++
				return nil
			}
			remap = true
		}
	}

	target := code
	if remap {
		next, err := nextFreeCode(imp.usedCodes, imp.intn)
		if err != nil {
			return err
		}
		target = next
		imp.summary.LockersRemapped = append(imp.summary.LockersRemapped, CodeRemap{From: raw, To: target})
	}

	created, err := imp.st.Lockers.Create(ctx, imp.userID, target, name, desc)
	if err != nil {
		return err
	}
	imp.usedCodes[target] = true
	imp.created = append(imp.created, created)
	imp.mapLocker(l.ID, code, created.ID)
	imp.summary.LockersCreated++
	return nil
}

func (imp *importer) mapLocker(snapshotID int64, snapshotCode string, id int64) {
	imp.lockerIDs[snapshotID] = id
	if snapshotCode != "" {
		imp.lockerCodes[snapshotCode] = id
	}
}

func (imp *importer) item(ctx context.Context, i SnapshotItem) error {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		return nil
	}
	if err := tooLong("barang", name, maxItemNameLength); err != nil {
		return err
	}
	if i.Quantity > maxQuantity {
		return validation.New("file", fmt.Sprintf("%sjumlah %s melebihi %d", msgInvalidFile, name, maxQuantity))
	}
	categoryID, err := imp.resolveCategory(ctx, i)
	if err != nil {
		return err
	}
	lockerID, err := imp.resolveLocker(ctx, i)
	if err != nil {
		return err
	}

	_, merged, err := addOrMergeItem(ctx, imp.st, &domain.Item{
		UserID:      imp.userID,
		Name:        name,
		Quantity:    max(i.Quantity, 0),
		Description: strings.TrimSpace(i.Description),
		CategoryID:  categoryID,
		LockerID:    lockerID,
	})
	if err != nil {
		return err
	}
	if merged {
		imp.summary.ItemsMerged++
	} else {
		imp.summary.ItemsCreated++
	}
	return nil
}

func (imp *importer) resolveCategory(ctx context.Context, i SnapshotItem) (int64, error) {
	if id, ok := imp.categoryIDs[i.CategoryID]; ok && i.CategoryID != 0 {
		return id, nil
	}
	name := strings.TrimSpace(i.CategoryName)
	if name == "" {
		name = FallbackCategoryName
	}
	c, created, err := ensureCategory(ctx, imp.st, imp.userID, name)
	if err != nil {
		return 0, err
	}
	if created {
		imp.summary.CategoriesCreated++
	}
	return c.ID, nil
}

func (imp *importer) resolveLocker(ctx context.Context, i SnapshotItem) (int64, error) {
	if id, ok := imp.lockerIDs[i.LockerID]; ok && i.LockerID != 0 {
		return id, nil
	}
	if code := normalizeCode(i.LockerCode); code != "" {
		if id, ok := imp.lockerCodes[code]; ok {
			return id, nil
		}
		existing, err := imp.st.Lockers.GetByCode(ctx, imp.userID, code)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			return existing.ID, nil
		}
	}
	return imp.fallbackLocker(ctx)
}

// fallbackLocker lazily creates one "Loker Impor" per import for items whose
// locker cannot be resolved.
func (imp *importer) fallbackLocker(ctx context.Context) (int64, error) {
	if imp.fallbackLock != nil {
		return imp.fallbackLock.ID, nil
	}
	code, err := nextFreeCode(imp.usedCodes, imp.intn)
	if err != nil {
		return 0, err
	}
	l, err := imp.st.Lockers.Create(ctx, imp.userID, code, FallbackLockerName, "")
	if err != nil {
		return 0, fmt.Errorf("failed to create fallback locker: %w", err)
	}
	imp.fallbackLock = l
	imp.created = append(imp.created, l)
	imp.summary.LockersCreated++
	return l.ID, nil
}
