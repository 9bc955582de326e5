package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/storage"
)

// PartnerStore is the partners and partner_documents persistence.
type PartnerStore interface {
	GetByUser(ctx context.Context, userID uint64) (*model.Partner, error)
	GetByID(ctx context.Context, id uint64) (*model.Partner, error)
	SaveBusiness(ctx context.Context, p *model.Partner) error
	SaveContact(ctx context.Context, p *model.Partner) error
	Submit(ctx context.Context, id uint64, at time.Time) error
	ReviewTx(ctx context.Context, tx *sql.Tx, id uint64, status, note string, at time.Time) error
	ListByStatus(ctx context.Context, status string) ([]*model.Partner, error)
	AddDocument(ctx context.Context, d *model.PartnerDocument) error
	ListDocuments(ctx context.Context, partnerID uint64) ([]*model.PartnerDocument, error)
	GetDocument(ctx context.Context, id uint64) (*model.PartnerDocument, error)
	DeleteDocument(ctx context.Context, id uint64) error
}

// RoleUpdater changes a user's role inside a transaction.
type RoleUpdater interface {
	UpdateRoleTx(ctx context.Context, tx *sql.Tx, id uint64, role string) error
}

// PartnerService runs the partner onboarding flow and its admin review.
type PartnerService struct {
	db       TxBeginner
	partners PartnerStore
	users    RoleUpdater
	store    storage.Store
	notifier Notifier
	maxBytes int64
	log      zerolog.Logger
	now      func() time.Time
}

func NewPartnerService(db TxBeginner, partners PartnerStore, users RoleUpdater, store storage.Store, notifier Notifier, maxBytes int64, log zerolog.Logger) *PartnerService {
	return &PartnerService{
		db:       db,
		partners: partners,
		users:    users,
		store:    store,
		notifier: notifier,
		maxBytes: maxBytes,
		log:      log.With().Str("service", "partners").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BusinessInput is step 1 of the application.
type BusinessInput struct {
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	ServiceType  string `json:"service_type"`
	Description  string `json:"description"`
}

func (in BusinessInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.BusinessName, validation.Required.Error("business name is required"), validation.Length(1, 160)),
		validation.Field(&in.BusinessType, validation.Required.Error("business type is required"),
			validation.In("venue", "supplier", "planner").Error("must be venue, supplier or planner")),
		validation.Field(&in.ServiceType, validation.Required.Error("service type is required"), validation.Length(1, 120)),
		validation.Field(&in.Description, validation.Required.Error("description is required"),
			validation.Length(20, 5000).Error("description must be at least 20 characters")),
	)
}

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{5,18}[0-9]$`)

// ContactInput is step 2 of the application.
type ContactInput struct {
	ContactName  string `json:"contact_name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Website      string `json:"website"`
}

func (in ContactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ContactName, validation.Required, validation.Length(1, 160)),
		validation.Field(&in.ContactEmail, validation.Required, is.EmailFormat),
		validation.Field(&in.ContactPhone, validation.Required, validation.Match(phonePattern).Error("must be a phone number")),
		validation.Field(&in.Website, is.URL),
	)
}

// Application returns the caller's application with its documents.
func (s *PartnerService) Application(ctx context.Context, userID uint64) (*model.Partner, error) {
	p, err := s.partners.GetByUser(ctx, userID)
	if err != nil {
		return nil, fail(s.log, err, "get application")
	}
	if p.Documents, err = s.partners.ListDocuments(ctx, p.ID); err != nil {
		return nil, fail(s.log, err, "list documents")
	}
	return p, nil
}

// SaveBusiness validates and stores step 1, creating the application on
// first use.  Nothing is written when validation fails.
func (s *PartnerService) SaveBusiness(ctx context.Context, userID uint64, in BusinessInput) (*model.Partner, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.BusinessType = strings.ToLower(strings.TrimSpace(in.BusinessType))
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &model.Partner{
		UserID:       userID,
		BusinessName: in.BusinessName,
		BusinessType: in.BusinessType,
		ServiceType:  in.ServiceType,
		Description:  in.Description,
	}
	if err := s.partners.SaveBusiness(ctx, p); err != nil {
		return nil, fail(s.log, err, "save business step")
	}
	return p, nil
}

// SaveContact validates and stores step 2.
func (s *PartnerService) SaveContact(ctx context.Context, userID uint64, in ContactInput) (*model.Partner, error) {
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.Website = strings.TrimSpace(in.Website)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := &model.Partner{
		UserID:       userID,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Website:      in.Website,
	}
	if err := s.partners.SaveContact(ctx, p); err != nil {
		return nil, fail(s.log, err, "save contact step")
	}
	return p, nil
}

var documentKinds = []any{"license", "insurance", "id", "other"}

// AddDocument stores a PDF or image for a draft application under
// "<partnerID>/<uuid>.<ext>" in the private documents bucket.
func (s *PartnerService) AddDocument(ctx context.Context, userID uint64, kind string, u Upload) (*model.PartnerDocument, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	kindErr := validation.Errors{
		"kind": validation.Validate(kind, validation.Required, validation.In(documentKinds...)),
	}
	if err := kindErr.Filter(); err != nil {
		return nil, err
	}
	p, err := s.draft(ctx, userID)
	if err != nil {
		return nil, err
	}
	sn, _, err := readUpload(u, s.maxBytes, documentTypes)
	if err != nil {
		return nil, err
	}
	obj, err := putObject(ctx, s.store, storage.BucketPartnerDocs, uuidName(uintStr(p.ID)+"/", sn.Extension), sn)
	if err != nil {
		return nil, fail(s.log, err, "upload document")
	}
	d := &model.PartnerDocument{
		PartnerID:   p.ID,
		Kind:        kind,
		FileName:    cleanFileName(u.Name),
		ContentType: obj.ContentType,
		Path:        obj.Path,
	}
	if err := s.partners.AddDocument(ctx, d); err != nil {
		if rmErr := s.store.Remove(ctx, storage.BucketPartnerDocs, obj.Path); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("path", obj.Path).Msg("remove orphaned document")
		}
		return nil, fail(s.log, err, "add document")
	}
	return d, nil
}

// DeleteDocument removes a document from a draft application.
func (s *PartnerService) DeleteDocument(ctx context.Context, userID, docID uint64) error {
	p, err := s.draft(ctx, userID)
	if err != nil {
		return err
	}
	d, err := s.partners.GetDocument(ctx, docID)
	if err != nil {
		return fail(s.log, err, "get document")
	}
	if d.PartnerID != p.ID {
		return repository.ErrForbidden
	}
	if err := s.partners.DeleteDocument(ctx, docID); err != nil {
		return fail(s.log, err, "delete document")
	}
	if err := s.store.Remove(ctx, storage.BucketPartnerDocs, d.Path); err != nil {
		s.log.Warn().Err(err).Str("path", d.Path).Msg("remove document object")
	}
	return nil
}

// OpenDocument returns a document and its content to the applicant or an
// admin.  The caller closes the reader.
func (s *PartnerService) OpenDocument(ctx context.Context, userID uint64, isAdmin bool, docID uint64) (*model.PartnerDocument, io.ReadCloser, error) {
	d, err := s.partners.GetDocument(ctx, docID)
	if err != nil {
		return nil, nil, fail(s.log, err, "get document")
	}
	if !isAdmin {
		p, err := s.partners.GetByUser(ctx, userID)
		if err != nil || p.ID != d.PartnerID {
			return nil, nil, repository.ErrForbidden
		}
	}
	rc, err := s.store.Open(ctx, storage.BucketPartnerDocs, d.Path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, fail(s.log, err, "open document")
	}
	return d, rc, nil
}

// Submit sends a complete draft for review.
func (s *PartnerService) Submit(ctx context.Context, userID uint64) (*model.Partner, error) {
	p, err := s.draft(ctx, userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.partners.ListDocuments(ctx, p.ID)
	if err != nil {
		return nil, fail(s.log, err, "list documents")
	}
	missing := validation.Errors{}
	if !p.BusinessStepDone() {
		missing["business"] = errors.New("business details are incomplete")
	}
	if !p.ContactStepDone() {
		missing["contact"] = errors.New("contact details are incomplete")
	}
	if len(docs) == 0 {
		missing["documents"] = errors.New("at least one document is required")
	}
	if len(missing) > 0 {
		return nil, missing
	}
	if err := s.partners.Submit(ctx, p.ID, s.now()); err != nil {
		return nil, fail(s.log, err, "submit application")
	}
	if _, err := s.notifier.Notify(ctx, userID, model.NotifyPartnerSubmitted, "Application submitted",
		p.BusinessName+" is waiting for review", "/partner/application"); err != nil {
		s.log.Warn().Err(err).Uint64("partner_id", p.ID).Msg("submit notification failed")
	}
	return s.Application(ctx, userID)
}

// List returns applications in status for admins; empty means SUBMITTED.
func (s *PartnerService) List(ctx context.Context, status string) ([]*model.Partner, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" {
		status = model.PartnerSubmitted
	}
	out, err := s.partners.ListByStatus(ctx, status)
	if err != nil {
		return nil, fail(s.log, err, "list applications")
	}
	return out, nil
}

// Review approves or rejects a submitted application.  Approval grants
// the role matching the business type in the same transaction.
func (s *PartnerService) Review(ctx context.Context, id uint64, approve bool, note string) (*model.Partner, error) {
	p, err := s.partners.GetByID(ctx, id)
	if err != nil {
		return nil, fail(s.log, err, "get application")
	}
	if p.Status != model.PartnerSubmitted {
		return nil, ErrInvalidTransition
	}
	status := model.PartnerRejected
	if approve {
		status = model.PartnerApproved
	}
	note = strings.TrimSpace(note)
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.partners.ReviewTx(ctx, tx, id, status, note, s.now()); err != nil {
			return err
		}
		if !approve {
			return nil
		}
		role := model.RoleForBusinessType(p.BusinessType)
		if role == "" {
			return ErrIncomplete
		}
		return s.users.UpdateRoleTx(ctx, tx, p.UserID, role)
	})
	if err != nil {
		return nil, fail(s.log, err, "review application")
	}
	body := "Your application was " + strings.ToLower(status)
	if note != "" {
		body += ": " + note
	}
	if _, err := s.notifier.Notify(ctx, p.UserID, model.NotifyPartnerReviewed, "Partner application "+strings.ToLower(status),
		body, "/partner/application"); err != nil {
		s.log.Warn().Err(err).Uint64("partner_id", p.ID).Msg("review notification failed")
	}
	return s.partners.GetByID(ctx, id)
}

func (s *PartnerService) draft(ctx context.Context, userID uint64) (*model.Partner, error) {
	p, err := s.partners.GetByUser(ctx, userID)
	if err != nil {
		return nil, fail(s.log, err, "get application")
	}
	if p.Status != model.PartnerDraft {
		return nil, ErrInvalidTransition
	}
	return p, nil
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if len(name) > 255 {
		name = name[:255]
	}
	return name
}
