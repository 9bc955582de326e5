package service

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/storage"
)

// SupplierStore is the supplier table.
type SupplierStore interface {
	Create(ctx context.Context, s *model.Supplier) error
	GetByID(ctx context.Context, id uint64) (*model.Supplier, error)
	List(ctx context.Context, q repository.DirectoryQuery) ([]*model.Supplier, int64, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Supplier, error)
	Update(ctx context.Context, s *model.Supplier) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// VenueStore is the venue table.
type VenueStore interface {
	Create(ctx context.Context, v *model.Venue) error
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	List(ctx context.Context, q repository.DirectoryQuery) ([]*model.Venue, int64, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Venue, error)
	Update(ctx context.Context, v *model.Venue) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

// GalleryStore is the gallery_images table.
type GalleryStore interface {
	Add(ctx context.Context, img *model.GalleryImage) error
	List(ctx context.Context, kind model.ResourceKind, ownerID uint64) ([]*model.GalleryImage, error)
	Get(ctx context.Context, id uint64) (*model.GalleryImage, error)
	Delete(ctx context.Context, id uint64) error
}

// PlannerLister lists planner profiles.
type PlannerLister interface {
	ListPlanners(ctx context.Context, q repository.DirectoryQuery) ([]model.Planner, int64, error)
}

// Page is one page of a directory listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// DirectoryService serves the supplier, venue and planner directories and
// lets owners manage their listings.
type DirectoryService struct {
	suppliers SupplierStore
	venues    VenueStore
	gallery   GalleryStore
	planners  PlannerLister
	profiles  ProfileStore
	store     storage.Store
	maxBytes  int64
	log       zerolog.Logger
}

func NewDirectoryService(suppliers SupplierStore, venues VenueStore, gallery GalleryStore, planners PlannerLister,
	profiles ProfileStore, store storage.Store, maxBytes int64, log zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		suppliers: suppliers,
		venues:    venues,
		gallery:   gallery,
		planners:  planners,
		profiles:  profiles,
		store:     store,
		maxBytes:  maxBytes,
		log:       log.With().Str("service", "directory").Logger(),
	}
}

// SupplierInput is the editable part of a supplier listing.
type SupplierInput struct {
	CompanyName string          `json:"company_name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	City        string          `json:"city"`
	PriceFrom   decimal.Decimal `json:"price_from"`
	ImageURL    string          `json:"image_url"`
}

func (in SupplierInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CompanyName, validation.Required, validation.Length(1, 160)),
		validation.Field(&in.Category, validation.Required, validation.Length(1, 64)),
		validation.Field(&in.City, validation.Length(0, 120)),
		validation.Field(&in.PriceFrom, validation.By(nonNegative)),
	)
}

// VenueInput is the editable part of a venue listing.
type VenueInput struct {
	Name         string          `json:"name"`
	City         string          `json:"city"`
	Address      string          `json:"address"`
	Capacity     uint32          `json:"capacity"`
	PricePerHour decimal.Decimal `json:"price_per_hour"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"image_url"`
}

func (in VenueInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 160)),
		validation.Field(&in.City, validation.Required, validation.Length(1, 120)),
		validation.Field(&in.Address, validation.Length(0, 255)),
		validation.Field(&in.Capacity, validation.Required),
		validation.Field(&in.PricePerHour, validation.By(nonNegative)),
	)
}

func nonNegative(v any) error {
	d, ok := v.(decimal.Decimal)
	if ok && d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

func (s *DirectoryService) ListSuppliers(ctx context.Context, q repository.DirectoryQuery) (*Page[*model.Supplier], error) {
	q.Normalize()
	items, total, err := s.suppliers.List(ctx, q)
	if err != nil {
		return nil, fail(s.log, err, "list suppliers")
	}
	return &Page[*model.Supplier]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *DirectoryService) ListVenues(ctx context.Context, q repository.DirectoryQuery) (*Page[*model.Venue], error) {
	q.Normalize()
	items, total, err := s.venues.List(ctx, q)
	if err != nil {
		return nil, fail(s.log, err, "list venues")
	}
	return &Page[*model.Venue]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *DirectoryService) ListPlanners(ctx context.Context, q repository.DirectoryQuery) (*Page[model.Planner], error) {
	q.Normalize()
	items, total, err := s.planners.ListPlanners(ctx, q)
	if err != nil {
		return nil, fail(s.log, err, "list planners")
	}
	return &Page[model.Planner]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

// Supplier returns a supplier with its owner's company profile and
// gallery.  A missing profile leaves Company nil.
func (s *DirectoryService) Supplier(ctx context.Context, id uint64) (*model.Supplier, error) {
	sup, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "get supplier")
	}
	p, err := s.profiles.Get(ctx, sup.OwnerID)
	switch {
	case err == nil:
		sup.Company = p
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fail(s.log, err, "get supplier company")
	}
	if sup.Gallery, err = s.gallery.List(ctx, model.KindSupplier, id); err != nil {
		return nil, fail(s.log, err, "list supplier gallery")
	}
	return sup, nil
}

// Venue returns a venue with its gallery.
func (s *DirectoryService) Venue(ctx context.Context, id uint64) (*model.Venue, error) {
	v, err := s.venues.GetByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "get venue")
	}
	if v.Gallery, err = s.gallery.List(ctx, model.KindVenue, id); err != nil {
		return nil, fail(s.log, err, "list venue gallery")
	}
	return v, nil
}

func (s *DirectoryService) MySuppliers(ctx context.Context, ownerID uint64) ([]*model.Supplier, error) {
	out, err := s.suppliers.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fail(s.log, err, "list own suppliers")
	}
	return out, nil
}

func (s *DirectoryService) MyVenues(ctx context.Context, ownerID uint64) ([]*model.Venue, error) {
	out, err := s.venues.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fail(s.log, err, "list own venues")
	}
	return out, nil
}

func (s *DirectoryService) CreateSupplier(ctx context.Context, ownerID uint64, in SupplierInput) (*model.Supplier, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sup := in.apply(&model.Supplier{OwnerID: ownerID})
	if err := s.suppliers.Create(ctx, sup); err != nil {
		return nil, fail(s.log, err, "create supplier")
	}
	return sup, nil
}

func (s *DirectoryService) UpdateSupplier(ctx context.Context, ownerID, id uint64, in SupplierInput) (*model.Supplier, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sup := in.apply(&model.Supplier{ID: id, OwnerID: ownerID})
	if err := s.suppliers.Update(ctx, sup); err != nil {
		return nil, fail(s.log, err, "update supplier")
	}
	return sup, nil
}

func (s *DirectoryService) DeleteSupplier(ctx context.Context, ownerID, id uint64) error {
	if err := s.suppliers.Delete(ctx, id, ownerID); err != nil {
		return fail(s.log, err, "delete supplier")
	}
	s.dropGallery(ctx, model.KindSupplier, id)
	return nil
}

func (s *DirectoryService) CreateVenue(ctx context.Context, ownerID uint64, in VenueInput) (*model.Venue, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	v := in.apply(&model.Venue{OwnerID: ownerID})
	if err := s.venues.Create(ctx, v); err != nil {
		return nil, fail(s.log, err, "create venue")
	}
	return v, nil
}

func (s *DirectoryService) UpdateVenue(ctx context.Context, ownerID, id uint64, in VenueInput) (*model.Venue, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	v := in.apply(&model.Venue{ID: id, OwnerID: ownerID})
	if err := s.venues.Update(ctx, v); err != nil {
		return nil, fail(s.log, err, "update venue")
	}
	return v, nil
}

func (s *DirectoryService) DeleteVenue(ctx context.Context, ownerID, id uint64) error {
	if err := s.venues.Delete(ctx, id, ownerID); err != nil {
		return fail(s.log, err, "delete venue")
	}
	s.dropGallery(ctx, model.KindVenue, id)
	return nil
}

// galleryTarget returns the bucket and path prefix for images of a resource.
func galleryTarget(kind model.ResourceKind, id uint64) (bucket, prefix string) {
	if kind == model.KindVenue {
		return storage.BucketEventPlanner, "venues/" + uintStr(id) + "/"
	}
	return storage.BucketSuppliers, uintStr(id) + "/"
}

// AddGalleryImage uploads an image for a resource owned by ownerID.
func (s *DirectoryService) AddGalleryImage(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, u Upload) (*model.GalleryImage, error) {
	if err := s.checkOwner(ctx, ownerID, kind, id); err != nil {
		return nil, err
	}
	sn, _, err := readUpload(u, s.maxBytes, imageTypes)
	if err != nil {
		return nil, err
	}
	bucket, prefix := galleryTarget(kind, id)
	obj, err := putObject(ctx, s.store, bucket, uuidName(prefix, sn.Extension), sn)
	if err != nil {
		return nil, fail(s.log, err, "upload gallery image")
	}
	img := &model.GalleryImage{OwnerKind: kind, OwnerID: id, Bucket: bucket, Path: obj.Path, URL: obj.URL}
	if err := s.gallery.Add(ctx, img); err != nil {
		if rmErr := s.store.Remove(ctx, bucket, obj.Path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", obj.Path).Msg("remove orphaned image")
		}
		return nil, fail(s.log, err, "add gallery image")
	}
	return img, nil
}

// DeleteGalleryImage removes an image row and its object.
func (s *DirectoryService) DeleteGalleryImage(ctx context.Context, ownerID, imageID uint64) error {
	img, err := s.gallery.Get(ctx, imageID)
	if err != nil {
		return fail(s.log, err, "get gallery image")
	}
	if err := s.checkOwner(ctx, ownerID, img.OwnerKind, img.OwnerID); err != nil {
		return err
	}
	if err := s.gallery.Delete(ctx, imageID); err != nil {
		return fail(s.log, err, "delete gallery image")
	}
	if err := s.store.Remove(ctx, img.Bucket, img.Path); err != nil {
		s.log.Warn().Err(err).Str("path", img.Path).Msg("remove gallery object")
	}
	return nil
}

func (s *DirectoryService) checkOwner(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64) error {
	var owner uint64
	switch kind {
	case model.KindVenue:
		v, err := s.venues.GetByID(ctx, id)
		if err != nil {
			return fail(s.log, err, "get venue")
		}
		owner = v.OwnerID
	case model.KindSupplier:
		sup, err := s.suppliers.GetByID(ctx, id)
		if err != nil {
			return fail(s.log, err, "get supplier")
		}
		owner = sup.OwnerID
	default:
		return repository.ErrNotFound
	}
	if owner != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

// dropGallery removes the gallery rows and objects of a deleted resource.
// gallery_images is shared by both kinds, so there is no cascading key.
func (s *DirectoryService) dropGallery(ctx context.Context, kind model.ResourceKind, id uint64) {
	imgs, err := s.gallery.List(ctx, kind, id)
	if err != nil {
		s.log.Warn().Err(err).Msg("list gallery for cleanup")
		return
	}
	for _, img := range imgs {
		if err := s.gallery.Delete(ctx, img.ID); err != nil {
			s.log.Warn().Err(err).Uint64("image_id", img.ID).Msg("delete gallery row")
		}
		if err := s.store.Remove(ctx, img.Bucket, img.Path); err != nil {
			s.log.Warn().Err(err).Str("path", img.Path).Msg("remove gallery object")
		}
	}
}

func (in SupplierInput) apply(s *model.Supplier) *model.Supplier {
	s.CompanyName = strings.TrimSpace(in.CompanyName)
	s.Category = strings.ToLower(strings.TrimSpace(in.Category))
	s.Description = strings.TrimSpace(in.Description)
	s.City = strings.TrimSpace(in.City)
	s.PriceFrom = in.PriceFrom
	s.ImageURL = strings.TrimSpace(in.ImageURL)
	return s
}

func (in VenueInput) apply(v *model.Venue) *model.Venue {
	v.Name = strings.TrimSpace(in.Name)
	v.City = strings.TrimSpace(in.City)
	v.Address = strings.TrimSpace(in.Address)
	v.Capacity = in.Capacity
	v.PricePerHour = in.PricePerHour
	v.Description = strings.TrimSpace(in.Description)
	v.ImageURL = strings.TrimSpace(in.ImageURL)
	return v
}
