package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/apperr"
)

// fakeStore is an in-memory Store for service tests. Timestamps come from a
// monotonic fake clock so ordering assertions are deterministic.
type fakeStore struct {
	mu    sync.Mutex
	clock time.Time

	convs     map[uuid.UUID]*models.Conversation
	parts     map[uuid.UUID][]*models.Participant
	msgs      []*models.Message
	reactions []*models.Reaction

	// eventID -> userID -> department IDs; an entry with an empty slice is a
	// member with no department.
	members map[uuid.UUID]map[uuid.UUID][]uuid.UUID
	users   map[uuid.UUID]models.UserPublic
	tenants map[uuid.UUID]uuid.UUID
	links   map[uuid.UUID][]models.AttachmentLink
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clock:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		convs:   make(map[uuid.UUID]*models.Conversation),
		parts:   make(map[uuid.UUID][]*models.Participant),
		members: make(map[uuid.UUID]map[uuid.UUID][]uuid.UUID),
		users:   make(map[uuid.UUID]models.UserPublic),
		tenants: make(map[uuid.UUID]uuid.UUID),
		links:   make(map[uuid.UUID][]models.AttachmentLink),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) addUser(name string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = models.UserPublic{ID: id, Email: name + "@example.com", FullName: name}
	return id
}

func (f *fakeStore) addEvent(tenantID uuid.UUID) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.tenants[id] = tenantID
	f.members[id] = make(map[uuid.UUID][]uuid.UUID)
	return id
}

func (f *fakeStore) addMember(eventID, userID uuid.UUID, deptIDs ...uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[eventID][userID] = append(f.members[eventID][userID], deptIDs...)
	if f.members[eventID][userID] == nil {
		f.members[eventID][userID] = []uuid.UUID{}
	}
}

func (f *fakeStore) removeMember(eventID, userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[eventID], userID)
}

func (f *fakeStore) Conversation(_ context.Context, id uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateConversation(_ context.Context, conv *models.Conversation, participants []models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv.ID = uuid.New()
	conv.CreatedAt = f.tick()
	conv.UpdatedAt = conv.CreatedAt
	cp := *conv
	f.convs[conv.ID] = &cp
	for _, p := range participants {
		p.ID = uuid.New()
		p.ConversationID = conv.ID
		p.JoinedAt = conv.CreatedAt
		pp := p
		f.parts[conv.ID] = append(f.parts[conv.ID], &pp)
	}
	return nil
}

func (f *fakeStore) TouchConversation(_ context.Context, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.convs[id]; ok {
		c.UpdatedAt = at
	}
	return nil
}

func (f *fakeStore) ConversationsForUser(_ context.Context, eventID, userID uuid.UUID) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Conversation
	for _, c := range f.convs {
		if c.EventID != eventID || !c.IsActive {
			continue
		}
		for _, p := range f.parts[c.ID] {
			if p.UserID == userID {
				list = append(list, *c)
				break
			}
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (f *fakeStore) FindDirect(_ context.Context, eventID, a, b uuid.UUID) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.convs {
		if c.EventID != eventID || c.Kind != models.ConversationDirect || !c.IsActive {
			continue
		}
		parts := f.parts[c.ID]
		if len(parts) != 2 {
			continue
		}
		hasA, hasB := false, false
		for _, p := range parts {
			if p.UserID == a {
				hasA = true
			}
			if p.UserID == b {
				hasB = true
			}
		}
		if hasA && hasB {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SystemConversations(_ context.Context, eventID uuid.UUID) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Conversation
	for _, c := range f.convs {
		if c.EventID == eventID && c.IsSystemGroup && c.IsActive {
			list = append(list, *c)
		}
	}
	return list, nil
}

func (f *fakeStore) Participant(_ context.Context, conversationID, userID uuid.UUID) (*models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parts[conversationID] {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ParticipantsOf(_ context.Context, conversationID uuid.UUID) ([]models.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Participant, 0, len(f.parts[conversationID]))
	for _, p := range f.parts[conversationID] {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpsertParticipants(_ context.Context, conversationID uuid.UUID, participants []models.Participant) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var inserted []uuid.UUID
	for _, p := range participants {
		exists := false
		for _, have := range f.parts[conversationID] {
			if have.UserID == p.UserID {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		p.ID = uuid.New()
		p.ConversationID = conversationID
		p.JoinedAt = f.tick()
		pp := p
		f.parts[conversationID] = append(f.parts[conversationID], &pp)
		inserted = append(inserted, p.UserID)
	}
	return inserted, nil
}

func (f *fakeStore) DeleteParticipant(_ context.Context, conversationID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := f.parts[conversationID]
	for i, p := range parts {
		if p.UserID == userID {
			f.parts[conversationID] = append(parts[:i], parts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) SetParticipantRole(_ context.Context, conversationID, userID uuid.UUID, role models.ParticipantRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parts[conversationID] {
		if p.UserID == userID {
			p.Role = role
			return nil
		}
	}
	return fmt.Errorf("participant: %w", apperr.ErrNotFound)
}

func (f *fakeStore) TransferOwnership(_ context.Context, conversationID, newOwnerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := false
	for _, p := range f.parts[conversationID] {
		if p.UserID == newOwnerID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("participant: %w", apperr.ErrNotFound)
	}
	for _, p := range f.parts[conversationID] {
		if p.Role == models.ParticipantOwner {
			p.Role = models.ParticipantMember
		}
	}
	for _, p := range f.parts[conversationID] {
		if p.UserID == newOwnerID {
			p.Role = models.ParticipantOwner
		}
	}
	return nil
}

func (f *fakeStore) SetLastRead(_ context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parts[conversationID] {
		if p.UserID == userID {
			t := at
			p.LastReadAt = &t
			return nil
		}
	}
	return fmt.Errorf("participant: %w", apperr.ErrNotFound)
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uuid.New()
	msg.CreatedAt = f.tick()
	cp := *msg
	f.msgs = append(f.msgs, &cp)
	return nil
}

func (f *fakeStore) Message(_ context.Context, id uuid.UUID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LastMessage(_ context.Context, conversationID uuid.UUID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *models.Message
	for _, m := range f.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if last == nil || m.CreatedAt.After(last.CreatedAt) {
			last = m
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (f *fakeStore) MessagesBefore(_ context.Context, conversationID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.Message
	for _, m := range f.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		list = append(list, *m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeStore) UnreadCount(_ context.Context, conversationID, userID uuid.UUID, after *time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.ConversationID != conversationID || m.AuthorID == userID {
			continue
		}
		if after != nil && !m.CreatedAt.After(*after) {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) CreateReaction(_ context.Context, reaction *models.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reactions {
		if r.MessageID == reaction.MessageID && r.UserID == reaction.UserID && r.Emoji == reaction.Emoji {
			return fmt.Errorf("reaction exists: %w", apperr.ErrConflict)
		}
	}
	reaction.ID = uuid.New()
	reaction.CreatedAt = f.tick()
	cp := *reaction
	f.reactions = append(f.reactions, &cp)
	return nil
}

func (f *fakeStore) DeleteReaction(_ context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.reactions {
		if r.MessageID == messageID && r.UserID == userID && r.Emoji == emoji {
			f.reactions = append(f.reactions[:i], f.reactions[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) IsEventMember(_ context.Context, eventID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[eventID][userID]
	return ok, nil
}

func (f *fakeStore) FilterEventMembers(_ context.Context, eventID uuid.UUID, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, id := range userIDs {
		if _, ok := f.members[eventID][id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) UserDepartments(_ context.Context, eventID, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.members[eventID][userID]...), nil
}

func (f *fakeStore) EventTenant(_ context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tenants[eventID], nil
}

func (f *fakeStore) UsersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.UserPublic, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]models.UserPublic)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) AttachmentLinksForMessages(_ context.Context, messageIDs []uuid.UUID) (map[uuid.UUID][]models.AttachmentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID][]models.AttachmentLink)
	for _, id := range messageIDs {
		if links, ok := f.links[id]; ok {
			out[id] = append([]models.AttachmentLink(nil), links...)
		}
	}
	return out, nil
}

// fakeRBACStore is a minimal rbac.Store so chat tests can exercise the
// system-group sync through a real engine.
type fakeRBACStore struct {
	memberships map[uuid.UUID][]models.EventMembership
	roles       map[uuid.UUID]models.Role
	perms       map[uuid.UUID][]models.Permission
	overrides   map[uuid.UUID][]models.EventUserPermission
	tenants     map[uuid.UUID]uuid.UUID
}

func newFakeRBACStore() *fakeRBACStore {
	return &fakeRBACStore{
		memberships: make(map[uuid.UUID][]models.EventMembership),
		roles:       make(map[uuid.UUID]models.Role),
		perms:       make(map[uuid.UUID][]models.Permission),
		overrides:   make(map[uuid.UUID][]models.EventUserPermission),
		tenants:     make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeRBACStore) grantGlobalChatRead(eventID, userID uuid.UUID) {
	f.overrides[userID] = append(f.overrides[userID], models.EventUserPermission{
		ID:        uuid.New(),
		EventID:   eventID,
		UserID:    userID,
		ModuleKey: models.ModuleChat,
		Actions:   []string{models.ActionRead},
	})
}

func (f *fakeRBACStore) EventTenant(_ context.Context, eventID uuid.UUID) (uuid.UUID, error) {
	return f.tenants[eventID], nil
}

func (f *fakeRBACStore) MembershipsForUser(_ context.Context, eventID, userID uuid.UUID) ([]models.EventMembership, error) {
	var out []models.EventMembership
	for _, m := range f.memberships[userID] {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRBACStore) Departments(_ context.Context, _ uuid.UUID) ([]models.Department, error) {
	return nil, nil
}

func (f *fakeRBACStore) RolesByIDs(_ context.Context, ids []uuid.UUID) ([]models.Role, error) {
	var out []models.Role
	for _, id := range ids {
		if r, ok := f.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRBACStore) PermissionsForRoles(_ context.Context, roleIDs []uuid.UUID) ([]models.Permission, error) {
	var out []models.Permission
	for _, id := range roleIDs {
		out = append(out, f.perms[id]...)
	}
	return out, nil
}

func (f *fakeRBACStore) UserOverrides(_ context.Context, eventID, userID uuid.UUID) ([]models.EventUserPermission, error) {
	var out []models.EventUserPermission
	for _, o := range f.overrides[userID] {
		if o.EventID == eventID {
			out = append(out, o)
		}
	}
	return out, nil
}

var _ Store = (*fakeStore)(nil)
var _ rbac.Store = (*fakeRBACStore)(nil)
