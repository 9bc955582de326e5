package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
)

type memPartners struct {
	calls int
	p     *model.Partner
	docs  []*model.PartnerDocument
}

func (m *memPartners) GetByUser(_ context.Context, userID uint64) (*model.Partner, error) {
	m.calls++
	if m.p == nil || m.p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *m.p
	return &cp, nil
}

func (m *memPartners) GetByID(_ context.Context, id uint64) (*model.Partner, error) {
	m.calls++
	if m.p == nil || m.p.ID != id {
		return nil, repository.ErrNotFound
	}
	cp := *m.p
	return &cp, nil
}

func (m *memPartners) SaveBusiness(_ context.Context, p *model.Partner) error {
	m.calls++
	if m.p == nil {
		m.p = &model.Partner{ID: 1, UserID: p.UserID, Status: model.PartnerDraft}
	}
	m.p.BusinessName, m.p.BusinessType, m.p.ServiceType, m.p.Description = p.BusinessName, p.BusinessType, p.ServiceType, p.Description
	*p = *m.p
	return nil
}

func (m *memPartners) SaveContact(_ context.Context, p *model.Partner) error {
	m.calls++
	if m.p == nil {
		return repository.ErrNotFound
	}
	m.p.ContactName, m.p.ContactEmail, m.p.ContactPhone, m.p.Website = p.ContactName, p.ContactEmail, p.ContactPhone, p.Website
	*p = *m.p
	return nil
}

func (m *memPartners) Submit(_ context.Context, _ uint64, at time.Time) error {
	m.calls++
	m.p.Status = model.PartnerSubmitted
	m.p.SubmittedAt = &at
	return nil
}

func (m *memPartners) ReviewTx(_ context.Context, _ *sql.Tx, _ uint64, status, note string, at time.Time) error {
	m.calls++
	if m.p.Status != model.PartnerSubmitted {
		return repository.ErrConflict
	}
	m.p.Status, m.p.ReviewNote, m.p.ReviewedAt = status, note, &at
	return nil
}

func (m *memPartners) ListByStatus(context.Context, string) ([]*model.Partner, error) {
	m.calls++
	return []*model.Partner{m.p}, nil
}

func (m *memPartners) AddDocument(_ context.Context, d *model.PartnerDocument) error {
	m.calls++
	d.ID = uint64(len(m.docs) + 1)
	m.docs = append(m.docs, d)
	return nil
}

func (m *memPartners) ListDocuments(context.Context, uint64) ([]*model.PartnerDocument, error) {
	m.calls++
	return m.docs, nil
}

func (m *memPartners) GetDocument(_ context.Context, id uint64) (*model.PartnerDocument, error) {
	m.calls++
	for _, d := range m.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memPartners) DeleteDocument(_ context.Context, id uint64) error {
	m.calls++
	for i, d := range m.docs {
		if d.ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type roleRecorder struct {
	userID uint64
	role   string
}

func (r *roleRecorder) UpdateRoleTx(_ context.Context, _ *sql.Tx, id uint64, role string) error {
	r.userID, r.role = id, role
	return nil
}

func newPartnerFixture(t *testing.T) (*PartnerService, *memPartners, *roleRecorder, *recordNotifier, func()) {
	db, mock := txDB(t)
	partners := &memPartners{}
	roles := &roleRecorder{}
	n := &recordNotifier{}
	svc := NewPartnerService(db, partners, roles, newStore(t), n, 1<<20, nopLog)
	t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
	return svc, partners, roles, n, func() {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func TestPartner_BusinessStepRejectsEmptyFields(t *testing.T) {
	svc, partners, _, _, _ := newPartnerFixture(t)
	_, err := svc.SaveBusiness(context.Background(), 5, BusinessInput{BusinessName: "  "})

	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	for _, f := range []string{"business_name", "business_type", "service_type", "description"} {
		assert.Contains(t, verr, f)
	}
	assert.Zero(t, partners.calls, "no store call on invalid input")
}

func TestPartner_BusinessStepRules(t *testing.T) {
	svc, partners, _, _, _ := newPartnerFixture(t)
	_, err := svc.SaveBusiness(context.Background(), 5, BusinessInput{
		BusinessName: "Hall Co", BusinessType: "castle", ServiceType: "rental", Description: "too short",
	})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "business_type")
	assert.Contains(t, verr, "description")
	assert.NotContains(t, verr, "business_name")
	assert.Zero(t, partners.calls)
}

func TestPartner_ContactStepRules(t *testing.T) {
	svc, _, _, _, _ := newPartnerFixture(t)
	_, err := svc.SaveContact(context.Background(), 5, ContactInput{ContactName: "Ann", ContactEmail: "nope", ContactPhone: "call me"})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "contact_email")
	assert.Contains(t, verr, "contact_phone")
}

func TestPartner_FullFlowApproval(t *testing.T) {
	svc, partners, roles, n, expectTx := newPartnerFixture(t)
	ctx := context.Background()

	_, err := svc.SaveBusiness(ctx, 5, BusinessInput{
		BusinessName: "Hall Co", BusinessType: "Venue", ServiceType: "rental",
		Description: "A riverside hall for up to 300 guests",
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, 5)
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "contact")
	assert.Contains(t, verr, "documents")

	_, err = svc.SaveContact(ctx, 5, ContactInput{ContactName: "Ann", ContactEmail: "ann@hall.co", ContactPhone: "+1 555 010 2000"})
	require.NoError(t, err)

	_, err = svc.AddDocument(ctx, 5, "license", Upload{Name: "lic.txt", Body: strings.NewReader("hello")})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	_, err = svc.AddDocument(ctx, 5, "passport", Upload{Body: bytes.NewReader(tinyPNG)})
	require.ErrorAs(t, err, &verr)

	doc, err := svc.AddDocument(ctx, 5, "License", Upload{Name: `C:\scans\license.png`, Body: bytes.NewReader(tinyPNG)})
	require.NoError(t, err)
	assert.Equal(t, "license", doc.Kind)
	assert.Equal(t, "license.png", doc.FileName)
	assert.Regexp(t, `^1/[0-9a-f-]{36}\.png$`, doc.Path)

	p, err := svc.Submit(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, model.PartnerSubmitted, p.Status)

	expectTx()
	p, err = svc.Review(ctx, partners.p.ID, true, "welcome")
	require.NoError(t, err)
	assert.Equal(t, model.PartnerApproved, p.Status)
	assert.Equal(t, uint64(5), roles.userID)
	assert.Equal(t, model.RoleVenueOwner, roles.role)

	_, err = svc.Review(ctx, partners.p.ID, false, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	last := n.sent[len(n.sent)-1]
	assert.Equal(t, model.NotifyPartnerReviewed, last.Type)
	assert.Equal(t, uint64(5), last.UserID)
}

func TestPartner_DocumentAccess(t *testing.T) {
	svc, partners, _, _, _ := newPartnerFixture(t)
	ctx := context.Background()
	partners.p = &model.Partner{ID: 1, UserID: 5, Status: model.PartnerDraft}
	doc, err := svc.AddDocument(ctx, 5, "id", Upload{Body: bytes.NewReader(tinyPNG)})
	require.NoError(t, err)

	_, _, err = svc.OpenDocument(ctx, 6, false, doc.ID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, rc, err := svc.OpenDocument(ctx, 6, true, doc.ID)
	require.NoError(t, err)
	rc.Close()

	require.NoError(t, svc.DeleteDocument(ctx, 5, doc.ID))
	_, _, err = svc.OpenDocument(ctx, 5, false, doc.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPartner_AddDocumentRejectsUnknownKind(t *testing.T) {
	svc, partners, _, _, _ := newPartnerFixture(t)
	partners.p = &model.Partner{ID: 1, UserID: 5, Status: model.PartnerDraft}
	partners.calls = 0

	_, err := svc.AddDocument(context.Background(), 5, "passport", Upload{Body: bytes.NewReader(tinyPNG)})
	var verr validation.Errors
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "kind")
	assert.Zero(t, partners.calls)
	assert.Empty(t, partners.docs)
}

func TestPartner_ContactEmailIsFormatOnly(t *testing.T) {
	in := ContactInput{ContactName: "Ann", ContactEmail: "ann@no-mx-record.invalid", ContactPhone: "+1 555 010 2000"}
	assert.NoError(t, in.Validate())
}
