package service

// In-memory fakes for the repository interfaces. The services only see the
// interfaces, so these swap in for sqlite without any test database. Error
// fields let individual tests inject failures that are hard to trigger with
// real storage.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- accounts ---

type fakeAccounts struct {
	byID      map[string]*model.Account
	createErr error
	updateErr error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[string]*model.Account)}
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*model.Account, error) {
	if a, ok := f.byID[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperror.NotFound("account", id)
}

func (f *fakeAccounts) GetByIntraID(_ context.Context, intraID int64) (*model.Account, error) {
	for _, a := range f.byID {
		if a.IntraID == intraID && intraID != 0 {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("account", fmt.Sprintf("intra:%d", intraID))
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*model.Account, error) {
	for _, a := range f.byID {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("account", email)
}

func (f *fakeAccounts) Create(_ context.Context, account *model.Account) error {
	if f.createErr != nil {
		return f.createErr
	}
	if account.ID == "" {
		account.ID = fmt.Sprintf("acc-%d", len(f.byID)+1)
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

func (f *fakeAccounts) Update(_ context.Context, account *model.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[account.ID]; !ok {
		return apperror.NotFound("account", account.ID)
	}
	account.UpdatedAt = time.Now()
	cp := *account
	f.byID[account.ID] = &cp
	return nil
}

// --- auth identities ---

type fakeIdentities struct {
	byEmail   map[string]*model.AuthIdentity
	createErr error
	deleted   []string
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byEmail: make(map[string]*model.AuthIdentity)}
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (*model.AuthIdentity, error) {
	if id, ok := f.byEmail[email]; ok {
		cp := *id
		return &cp, nil
	}
	return nil, apperror.NotFound("auth identity", email)
}

func (f *fakeIdentities) Create(_ context.Context, identity *model.AuthIdentity) error {
	if f.createErr != nil {
		return f.createErr
	}
	if identity.ID == "" {
		identity.ID = fmt.Sprintf("ident-%d", len(f.byEmail)+1)
	}
	cp := *identity
	f.byEmail[identity.Email] = &cp
	return nil
}

func (f *fakeIdentities) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	for email, ident := range f.byEmail {
		if ident.ID == id {
			delete(f.byEmail, email)
			return nil
		}
	}
	return apperror.NotFound("auth identity", id)
}

// --- projects ---

type fakeProjects struct {
	bySlug map[string]*model.Project
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{bySlug: make(map[string]*model.Project)}
}

func (f *fakeProjects) add(slug string) *model.Project {
	p := &model.Project{
		ID:       "proj-" + slug,
		Slug:     slug,
		Title:    slug,
		Category: model.CategoryOther,
		Circle:   model.CircleUnassigned,
	}
	f.bySlug[slug] = p
	return p
}

func (f *fakeProjects) GetBySlug(_ context.Context, slug string) (*model.Project, error) {
	if p, ok := f.bySlug[slug]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.NotFound("project", slug)
}

func (f *fakeProjects) List(_ context.Context, opts repository.ListProjectsOptions) ([]model.Project, int, error) {
	var all []model.Project
	for _, p := range f.bySlug {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(opts.Search)) {
			continue
		}
		all = append(all, *p)
	}
	total := len(all)
	start := (opts.Page - 1) * opts.PerPage
	if start >= len(all) {
		return []model.Project{}, total, nil
	}
	all = all[start:]
	if opts.PerPage < len(all) {
		all = all[:opts.PerPage]
	}
	return all, total, nil
}

func (f *fakeProjects) UpdateCuration(_ context.Context, slug string, category *string, circle *int) (*model.Project, error) {
	p, ok := f.bySlug[slug]
	if !ok {
		return nil, apperror.NotFound("project", slug)
	}
	if category != nil {
		p.Category = *category
	}
	if circle != nil {
		p.Circle = *circle
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) InsertDiscovered(_ context.Context, projects []model.Project) (int, error) {
	added := 0
	for _, p := range projects {
		if _, ok := f.bySlug[p.Slug]; ok {
			continue
		}
		cp := p
		if cp.ID == "" {
			cp.ID = "proj-" + cp.Slug
		}
		f.bySlug[p.Slug] = &cp
		added++
	}
	return added, nil
}

// --- posts ---

type fakePosts struct {
	byID   map[string]*model.Post
	nextID int
}

func newFakePosts() *fakePosts {
	return &fakePosts{byID: make(map[string]*model.Post)}
}

func (f *fakePosts) GetByID(_ context.Context, id string) (*model.Post, error) {
	if p, ok := f.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, apperror.NotFound("post", id)
}

func (f *fakePosts) ListByProject(_ context.Context, projectID string) ([]model.Post, error) {
	var out []model.Post
	for _, p := range f.byID {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePosts) GetByAuthorAndProject(_ context.Context, authorID, projectID string) (*model.Post, error) {
	for _, p := range f.byID {
		if p.AuthorID == authorID && p.ProjectID == projectID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("post", authorID+"/"+projectID)
}

func (f *fakePosts) Create(_ context.Context, post *model.Post) error {
	f.nextID++
	post.ID = fmt.Sprintf("post-%d", f.nextID)
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	f.byID[post.ID] = &cp
	return nil
}

func (f *fakePosts) Update(_ context.Context, post *model.Post) error {
	if _, ok := f.byID[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	post.UpdatedAt = time.Now()
	cp := *post
	f.byID[post.ID] = &cp
	return nil
}

func (f *fakePosts) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.byID, id)
	return nil
}

// --- comments ---

type fakeComments struct {
	byID   map[string]*model.Comment
	order  []string // preserve insertion order for ListByProject
	nextID int
}

func newFakeComments() *fakeComments {
	return &fakeComments{byID: make(map[string]*model.Comment)}
}

func (f *fakeComments) GetByID(_ context.Context, id string) (*model.Comment, error) {
	if c, ok := f.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, apperror.NotFound("comment", id)
}

func (f *fakeComments) ListByProject(_ context.Context, projectID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, id := range f.order {
		if c := f.byID[id]; c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeComments) Create(_ context.Context, comment *model.Comment) error {
	f.nextID++
	comment.ID = fmt.Sprintf("comment-%d", f.nextID)
	comment.CreatedAt = time.Now()
	comment.UpdatedAt = comment.CreatedAt
	cp := *comment
	f.byID[comment.ID] = &cp
	f.order = append(f.order, comment.ID)
	return nil
}

// --- votes ---

type fakeVotes struct {
	byID   map[string]*model.Vote
	nextID int
}

func newFakeVotes() *fakeVotes {
	return &fakeVotes{byID: make(map[string]*model.Vote)}
}

func (f *fakeVotes) Get(_ context.Context, userID, targetType, targetID string) (*model.Vote, error) {
	for _, v := range f.byID {
		if v.UserID == userID && v.TargetType == targetType && v.TargetID == targetID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeVotes) Create(_ context.Context, vote *model.Vote) error {
	f.nextID++
	vote.ID = fmt.Sprintf("vote-%d", f.nextID)
	vote.CreatedAt = time.Now()
	cp := *vote
	f.byID[vote.ID] = &cp
	return nil
}

func (f *fakeVotes) UpdateValue(_ context.Context, id string, value int) error {
	v, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("vote", id)
	}
	v.Value = value
	return nil
}

func (f *fakeVotes) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return apperror.NotFound("vote", id)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeVotes) Score(_ context.Context, targetType, targetID string) (int, int, error) {
	sum, count := 0, 0
	for _, v := range f.byID {
		if v.TargetType == targetType && v.TargetID == targetID {
			sum += v.Value
			count++
		}
	}
	return sum, count, nil
}

func (f *fakeVotes) ForTargets(_ context.Context, targetType string, targetIDs []string) ([]model.Vote, error) {
	wanted := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		wanted[id] = true
	}
	var out []model.Vote
	for _, v := range f.byID {
		if v.TargetType == targetType && wanted[v.TargetID] {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVotes) UserVotes(_ context.Context, userID, targetType string, targetIDs []string) (map[string]int, error) {
	wanted := make(map[string]bool, len(targetIDs))
	for _, id := range targetIDs {
		wanted[id] = true
	}
	out := make(map[string]int)
	for _, v := range f.byID {
		if v.UserID == userID && v.TargetType == targetType && wanted[v.TargetID] {
			out[v.TargetID] = v.Value
		}
	}
	return out, nil
}

// seedVote inserts a vote row directly, bypassing the service.
func seedVote(t *testing.T, votes *fakeVotes, userID, targetType, targetID string, value int) {
	t.Helper()
	if err := votes.Create(context.Background(), &model.Vote{
		UserID: userID, TargetType: targetType, TargetID: targetID, Value: value,
	}); err != nil {
		t.Fatalf("seeding vote: %v", err)
	}
}
