// Package walls implements the tenant-scoped operations of feedr: signup,
// login, wall creation, adding content URLs and the read paths behind the
// dashboard and the public surfaces.
package walls

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
	"github.com/feedr-app/backend/pkg/utils"
)

const (
	// DefaultWallName is the name of the wall created at signup.
	DefaultWallName = "Mijn eerste wall"
	// MinPasswordLength is the minimum signup password length in characters.
	MinPasswordLength = 8
	// PublicItemLimit caps the public items API.
	PublicItemLimit = 30

	defaultSlugSpace    = 10000
	defaultSlugAttempts = 1000
)

// Documents is the slice of the document store the service needs.
type Documents interface {
	View(ctx context.Context, fn func(doc *models.Document) error) error
	Update(ctx context.Context, fn func(doc *models.Document) error) error
}

// SessionIssuer issues session tokens.
type SessionIssuer interface {
	Issue(userID, orgID uuid.UUID, email string) (string, error)
}

// Resolver turns a content URL into embed markup.
type Resolver interface {
	Resolve(ctx context.Context, platform models.Platform, url string) (models.Embed, error)
}

// ItemPublisher is notified of every item added to a wall.
type ItemPublisher interface {
	PublishItem(wallID uuid.UUID, item models.PublicItem)
}

// Service implements wall management.
type Service struct {
	docs      Documents
	sessions  SessionIssuer
	resolver  Resolver
	publisher ItemPublisher
	logger    *zap.Logger

	now     func() time.Time
	intn    func(n int) int
	dummyMu sync.Once
	dummy   string
}

// NewService creates the wall management service. publisher may be nil.
func NewService(docs Documents, sessions SessionIssuer, resolver Resolver, publisher ItemPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		docs:      docs,
		sessions:  sessions,
		resolver:  resolver,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		intn:      rand.Intn,
	}
}

// SignupResult is the outcome of a signup.
type SignupResult struct {
	Org   models.Organization
	User  models.User
	Wall  models.Wall
	Token string
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	User  models.User
	Token string
}

// OrgWalls is the dashboard overview of an organization.
type OrgWalls struct {
	Org   models.Organization
	Walls []models.Wall
}

// WallDetail is a wall with its sources and its items newest first.
type WallDetail struct {
	Wall    models.Wall
	Sources []models.Source
	Items   []models.Item
}

// PublicWall is a wall with all its items newest first.
type PublicWall struct {
	Wall  models.Wall
	Items []models.Item
}

// PublicItems is the body of the public items API.
type PublicItems struct {
	Wall  models.WallRef      `json:"wall"`
	Items []models.PublicItem `json:"items"`
}

// AddSourceResult is the source and item created by AddSource.
type AddSourceResult struct {
	Source models.Source
	Item   models.Item
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateOrganizationWithFirstUserAndWall signs up a new organization with its
// first user and a default wall, and issues a session for the user.
func (s *Service) CreateOrganizationWithFirstUserAndWall(ctx context.Context, orgName, email, password string) (*SignupResult, error) {
	orgName = strings.TrimSpace(orgName)
	email = NormalizeEmail(email)
	if orgName == "" || email == "" || utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, validation(MsgInvalidInput)
	}

	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, validation(MsgInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var res SignupResult
	err = s.docs.Update(ctx, func(doc *models.Document) error {
		if doc.UserByEmail(email) != nil {
			return conflict(MsgEmailTaken)
		}
		slug, err := s.drawDefaultSlug(doc)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		res.Org = models.Organization{ID: uuid.New(), Name: orgName, Plan: models.PlanFree, CreatedAt: now}
		res.User = models.User{ID: uuid.New(), OrgID: res.Org.ID, Email: email, PasswordHash: hash, CreatedAt: now}
		res.Wall = models.Wall{ID: uuid.New(), OrgID: res.Org.ID, Name: DefaultWallName, Slug: slug, CreatedAt: now}
		doc.Orgs = append(doc.Orgs, res.Org)
		doc.Users = append(doc.Users, res.User)
		doc.Walls = append(doc.Walls, res.Wall)
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Token, err = s.sessions.Issue(res.User.ID, res.Org.ID, res.User.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	s.logger.Info("organization created",
		zap.String("org_id", res.Org.ID.String()),
		zap.String("user_id", res.User.ID.String()),
		zap.String("wall_slug", res.Wall.Slug),
	)
	return &res, nil
}

func (s *Service) drawDefaultSlug(doc *models.Document) (string, error) {
	for i := 0; i < defaultSlugAttempts; i++ {
		slug := fmt.Sprintf("mijn-wall-%d", s.intn(defaultSlugSpace))
		if doc.WallBySlug(slug) == nil {
			return slug, nil
		}
	}
	return "", fmt.Errorf("no free default slug after %d attempts", defaultSlugAttempts)
}

// Authenticate checks credentials and issues a session. Unknown email and wrong
// password yield the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	var user *models.User
	err := s.docs.View(ctx, func(doc *models.Document) error {
		if u := doc.UserByEmail(email); u != nil {
			cp := *u
			user = &cp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if user == nil {
		utils.CheckPassword(password, s.dummyHash())
		return nil, badCredentials()
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, badCredentials()
	}

	token, err := s.sessions.Issue(user.ID, user.OrgID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	return &LoginResult{User: *user, Token: token}, nil
}

// dummyHash is compared against for unknown emails so both failure paths cost one bcrypt comparison.
func (s *Service) dummyHash() string {
	s.dummyMu.Do(func() {
		h, err := utils.HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Warn("dummy hash failed", zap.Error(err))
			return
		}
		s.dummy = h
	})
	return s.dummy
}

// CreateWall creates a wall for orgID with a normalized, unique slug.
func (s *Service) CreateWall(ctx context.Context, orgID uuid.UUID, name, slug string) (*models.Wall, error) {
	name = strings.TrimSpace(name)
	slug = NormalizeSlug(slug)
	if name == "" || slug == "" {
		return nil, validation(MsgInvalidInput)
	}

	var wall models.Wall
	err := s.docs.Update(ctx, func(doc *models.Document) error {
		if doc.OrgByID(orgID) == nil {
			return notFound()
		}
		if doc.WallBySlug(slug) != nil {
			return conflict(MsgSlugTaken)
		}
		wall = models.Wall{ID: uuid.New(), OrgID: orgID, Name: name, Slug: slug, CreatedAt: s.now().UTC()}
		doc.Walls = append(doc.Walls, wall)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wall, nil
}

// AddSource adds a content URL to a wall owned by orgID. The embed is resolved
// before the store is locked; ownership is checked again inside the update.
func (s *Service) AddSource(ctx context.Context, orgID, wallID uuid.UUID, rawType, rawURL string) (*AddSourceResult, error) {
	err := s.docs.View(ctx, func(doc *models.Document) error {
		_, err := ownedWall(doc, orgID, wallID)
		return err
	})
	if err != nil {
		return nil, err
	}

	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, validation(MsgMissingURL)
	}
	platform, ok := models.ParsePlatform(rawType)
	if !ok {
		return nil, validation(MsgUnsupportedType)
	}

	status := models.SourceStatusOK
	emb, rerr := s.resolver.Resolve(ctx, platform, url)
	if rerr != nil {
		s.logger.Warn("embed resolution failed", zap.String("type", string(platform)), zap.Error(rerr))
		status = models.SourceStatusError
		emb = models.Embed{Provider: string(platform)}
	}

	var res AddSourceResult
	err = s.docs.Update(ctx, func(doc *models.Document) error {
		wall, err := ownedWall(doc, orgID, wallID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		res.Source = models.Source{ID: uuid.New(), WallID: wall.ID, Type: platform, URL: url, Status: status, CreatedAt: now}
		res.Item = models.Item{
			ID:        uuid.New(),
			WallID:    wall.ID,
			Type:      platform,
			URL:       url,
			Provider:  emb.Provider,
			Title:     emb.Title,
			HTML:      emb.HTML,
			CreatedAt: now,
		}
		doc.Sources = append(doc.Sources, res.Source)
		doc.Items = append(doc.Items, res.Item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		s.publisher.PublishItem(res.Item.WallID, res.Item.ToPublic())
	}
	return &res, nil
}

func ownedWall(doc *models.Document, orgID, wallID uuid.UUID) (*models.Wall, error) {
	w := doc.WallByID(wallID)
	if w == nil || w.OrgID != orgID {
		return nil, notFound()
	}
	return w, nil
}

// ListWallsForOrg returns the organization and its walls.
func (s *Service) ListWallsForOrg(ctx context.Context, orgID uuid.UUID) (*OrgWalls, error) {
	var out OrgWalls
	err := s.docs.View(ctx, func(doc *models.Document) error {
		org := doc.OrgByID(orgID)
		if org == nil {
			return notFound()
		}
		out.Org = *org
		out.Walls = doc.WallsForOrg(orgID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetWallDetail returns a wall owned by orgID with its sources and items.
func (s *Service) GetWallDetail(ctx context.Context, orgID, wallID uuid.UUID) (*WallDetail, error) {
	var out WallDetail
	err := s.docs.View(ctx, func(doc *models.Document) error {
		w, err := ownedWall(doc, orgID, wallID)
		if err != nil {
			return err
		}
		out.Wall = *w
		out.Sources = doc.SourcesForWall(w.ID)
		out.Items = doc.ItemsForWall(w.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPublicWall returns the wall with the given slug and all its items.
func (s *Service) GetPublicWall(ctx context.Context, slug string) (*PublicWall, error) {
	var out PublicWall
	err := s.docs.View(ctx, func(doc *models.Document) error {
		w := doc.WallBySlug(slug)
		if w == nil {
			return notFound()
		}
		out.Wall = *w
		out.Items = doc.ItemsForWall(w.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPublicItems returns at most PublicItemLimit items of the wall, newest first.
func (s *Service) ListPublicItems(ctx context.Context, slug string) (*PublicItems, error) {
	pw, err := s.GetPublicWall(ctx, slug)
	if err != nil {
		return nil, err
	}
	items := pw.Items
	if len(items) > PublicItemLimit {
		items = items[:PublicItemLimit]
	}
	out := &PublicItems{Wall: pw.Wall.Ref(), Items: make([]models.PublicItem, 0, len(items))}
	for i := range items {
		out.Items = append(out.Items, items[i].ToPublic())
	}
	return out, nil
}
