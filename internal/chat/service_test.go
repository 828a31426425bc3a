package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventops/backend/internal/models"
	"github.com/eventops/backend/internal/rbac"
	"github.com/eventops/backend/pkg/apperr"
)

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeRBACStore) {
	t.Helper()
	store := newFakeStore()
	rbacStore := newFakeRBACStore()
	svc := NewService(store, rbac.NewEngine(rbacStore), zap.NewNop())
	svc.now = store.tick
	return svc, store, rbacStore
}

func principal(userID, tenantID uuid.UUID) rbac.Principal {
	return rbac.Principal{UserID: userID, TenantID: tenantID}
}

func seedEvent(store *fakeStore, users ...uuid.UUID) (eventID, tenantID uuid.UUID) {
	tenantID = uuid.New()
	eventID = store.addEvent(tenantID)
	for _, u := range users {
		store.addMember(eventID, u)
	}
	return eventID, tenantID
}

func TestCreateConversationActorBecomesOwner(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)

	conv, err := svc.CreateConversation(context.Background(), principal(alice, tenantID), CreateConversationInput{
		EventID:        eventID,
		Kind:           models.ConversationGroup,
		Title:          "Logistics",
		ParticipantIDs: []uuid.UUID{bob, alice},
	})
	require.NoError(t, err)

	parts, err := store.ParticipantsOf(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	roles := map[uuid.UUID]models.ParticipantRole{}
	for _, p := range parts {
		roles[p.UserID] = p.Role
	}
	assert.Equal(t, models.ParticipantOwner, roles[alice])
	assert.Equal(t, models.ParticipantMember, roles[bob])
}

func TestCreateConversationRejectsNonMember(t *testing.T) {
	svc, store, _ := newTestService(t)
	outsider := store.addUser("outsider")
	eventID, tenantID := seedEvent(store)

	_, err := svc.CreateConversation(context.Background(), principal(outsider, tenantID), CreateConversationInput{
		EventID: eventID,
		Kind:    models.ConversationGroup,
	})
	assert.True(t, apperr.IsForbidden(err))
}

func TestGetOrCreateDirectDeduplicates(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	first, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)

	// Same pair in the opposite order resolves to the same conversation.
	second, err := svc.GetOrCreateDirect(ctx, principal(bob, tenantID), eventID, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	third, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
}

func TestGetOrCreateDirectRejectsSelf(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	eventID, tenantID := seedEvent(store, alice)

	_, err := svc.GetOrCreateDirect(context.Background(), principal(alice, tenantID), eventID, alice)
	assert.True(t, apperr.IsBadRequest(err))
}

func TestSendMessageRequiresParticipation(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	carol := store.addUser("carol")
	eventID, tenantID := seedEvent(store, alice, carol)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "private",
	})
	require.NoError(t, err)

	// Carol is an event member but not a participant.
	_, err = svc.SendMessage(ctx, principal(carol, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "hi"})
	assert.True(t, apperr.IsForbidden(err))

	_, err = svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "  "})
	assert.True(t, apperr.IsBadRequest(err))

	msg, err := svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, alice, msg.AuthorID)
	assert.False(t, msg.IsSystem)
	assert.Equal(t, "alice", msg.Author.FullName)
}

func TestToggleReactionPeriodTwo(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	conv, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "hello"})
	require.NoError(t, err)

	res, err := svc.ToggleReaction(ctx, principal(bob, tenantID), msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, "added", res.Action)
	require.NotNil(t, res.ID)

	res, err = svc.ToggleReaction(ctx, principal(bob, tenantID), msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, "removed", res.Action)

	res, err = svc.ToggleReaction(ctx, principal(bob, tenantID), msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, "added", res.Action)

	// A different emoji from the same user is independent.
	res, err = svc.ToggleReaction(ctx, principal(bob, tenantID), msg.ID, "🎉")
	require.NoError(t, err)
	assert.Equal(t, "added", res.Action)
}

func TestMarkReadRequiresParticipation(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")
	eventID, tenantID := seedEvent(store, alice, bob, carol)
	ctx := context.Background()

	conv, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, principal(carol, tenantID), conv.ID)
	assert.True(t, apperr.IsForbidden(err))

	at, err := svc.MarkRead(ctx, principal(bob, tenantID), conv.ID)
	require.NoError(t, err)
	p, err := store.Participant(ctx, conv.ID, bob)
	require.NoError(t, err)
	require.NotNil(t, p.LastReadAt)
	assert.Equal(t, at, *p.LastReadAt)
}

func TestListConversationsUnreadCount(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	conv, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)

	send := func(author uuid.UUID, body string) {
		_, err := svc.SendMessage(ctx, principal(author, tenantID), SendMessageInput{ConversationID: conv.ID, Body: body})
		require.NoError(t, err)
	}
	send(alice, "one")
	send(alice, "two")
	_, err = svc.MarkRead(ctx, principal(bob, tenantID), conv.ID)
	require.NoError(t, err)
	send(alice, "three")
	send(alice, "four")
	send(alice, "five")
	send(bob, "ack") // own messages never count as unread

	list, err := svc.ListConversations(ctx, principal(bob, tenantID), eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "ack", list[0].LastMessage.Body)
}

func TestListConversationsLastMessageAllRead(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	conv, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "ping"})
	require.NoError(t, err)

	list, err := svc.ListConversations(ctx, principal(alice, tenantID), eventID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].LastMessageAllRead)

	_, err = svc.MarkRead(ctx, principal(bob, tenantID), conv.ID)
	require.NoError(t, err)

	list, err = svc.ListConversations(ctx, principal(alice, tenantID), eventID)
	require.NoError(t, err)
	assert.True(t, list[0].LastMessageAllRead)

	// From the recipient's side the flag stays false: it reports read
	// receipts for the viewer's own last message only.
	list, err = svc.ListConversations(ctx, principal(bob, tenantID), eventID)
	require.NoError(t, err)
	assert.False(t, list[0].LastMessageAllRead)
}

func TestAddParticipantsGroupRules(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")
	outsider := store.addUser("outsider")
	eventID, tenantID := seedEvent(store, alice, bob, carol)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "crew",
		ParticipantIDs: []uuid.UUID{bob},
	})
	require.NoError(t, err)

	// Only the owner may add to a group.
	_, err = svc.AddParticipants(ctx, principal(bob, tenantID), conv.ID, []uuid.UUID{carol})
	assert.True(t, apperr.IsForbidden(err))

	// Non-members are silently dropped; existing participants are skipped.
	// The system message names only who was actually inserted, so re-adding
	// bob alongside carol announces carol alone.
	res, err := svc.AddParticipants(ctx, principal(alice, tenantID), conv.ID, []uuid.UUID{carol, outsider, bob})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	require.NotNil(t, res.MessageID)

	sys, err := store.Message(ctx, *res.MessageID)
	require.NoError(t, err)
	assert.True(t, sys.IsSystem)
	assert.Equal(t, "added carol", sys.Body)

	// Re-adding everyone is a no-op and synthesizes nothing.
	res, err = svc.AddParticipants(ctx, principal(alice, tenantID), conv.ID, []uuid.UUID{bob, carol})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Nil(t, res.MessageID)
}

func TestRemoveParticipantRules(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")
	eventID, tenantID := seedEvent(store, alice, bob, carol)
	ctx := context.Background()

	group, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "crew",
		ParticipantIDs: []uuid.UUID{bob, carol},
	})
	require.NoError(t, err)

	// Members cannot remove each other.
	_, err = svc.RemoveParticipant(ctx, principal(bob, tenantID), group.ID, carol)
	assert.True(t, apperr.IsForbidden(err))

	// Nobody removes the owner but the owner.
	_, err = svc.RemoveParticipant(ctx, principal(bob, tenantID), group.ID, alice)
	assert.True(t, apperr.IsForbidden(err))

	// Self-removal is always allowed.
	res, err := svc.RemoveParticipant(ctx, principal(carol, tenantID), group.ID, carol)
	require.NoError(t, err)
	require.NotNil(t, res.MessageID)
	sys, err := store.Message(ctx, *res.MessageID)
	require.NoError(t, err)
	assert.Equal(t, "removed carol", sys.Body)

	// The owner removes a member.
	_, err = svc.RemoveParticipant(ctx, principal(alice, tenantID), group.ID, bob)
	require.NoError(t, err)

	// Removal applies to groups only.
	direct, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)
	_, err = svc.RemoveParticipant(ctx, principal(alice, tenantID), direct.ID, bob)
	assert.True(t, apperr.IsBadRequest(err))
}

func TestUpdateParticipantRoleKeepsSingleOwner(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "crew",
		ParticipantIDs: []uuid.UUID{bob},
	})
	require.NoError(t, err)

	// Demoting the sole owner directly is rejected.
	err = svc.UpdateParticipantRole(ctx, principal(alice, tenantID), conv.ID, alice, models.ParticipantMember)
	assert.True(t, apperr.IsBadRequest(err))

	// Only the owner may change roles.
	err = svc.UpdateParticipantRole(ctx, principal(bob, tenantID), conv.ID, bob, models.ParticipantOwner)
	assert.True(t, apperr.IsForbidden(err))

	// Promotion transfers ownership atomically.
	err = svc.UpdateParticipantRole(ctx, principal(alice, tenantID), conv.ID, bob, models.ParticipantOwner)
	require.NoError(t, err)

	parts, err := store.ParticipantsOf(ctx, conv.ID)
	require.NoError(t, err)
	owners := 0
	for _, p := range parts {
		if p.Role == models.ParticipantOwner {
			owners++
			assert.Equal(t, bob, p.UserID)
		}
	}
	assert.Equal(t, 1, owners)
}

func TestListMessagesPagination(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	conv, err := svc.GetOrCreateDirect(ctx, principal(alice, tenantID), eventID, bob)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{
			ConversationID: conv.ID, Body: string(rune('a' + i)),
		})
		require.NoError(t, err)
	}

	page, err := svc.ListMessages(ctx, principal(bob, tenantID), conv.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "d", page.Messages[0].Body)
	assert.Equal(t, "e", page.Messages[1].Body)
	require.NotNil(t, page.NextCursor)

	page, err = svc.ListMessages(ctx, principal(bob, tenantID), conv.ID, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "b", page.Messages[0].Body)
	assert.Equal(t, "c", page.Messages[1].Body)

	page, err = svc.ListMessages(ctx, principal(bob, tenantID), conv.ID, 2, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "a", page.Messages[0].Body)

	page, err = svc.ListMessages(ctx, principal(bob, tenantID), conv.ID, 2, page.NextCursor)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.Nil(t, page.NextCursor)
}

func TestMessageReaders(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	carol := store.addUser("carol")
	eventID, tenantID := seedEvent(store, alice, bob, carol)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "crew",
		ParticipantIDs: []uuid.UUID{bob, carol},
	})
	require.NoError(t, err)
	msg, err := svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: conv.ID, Body: "hello"})
	require.NoError(t, err)

	readers, err := svc.MessageReaders(ctx, principal(alice, tenantID), msg.ID)
	require.NoError(t, err)
	assert.Empty(t, readers)

	_, err = svc.MarkRead(ctx, principal(bob, tenantID), conv.ID)
	require.NoError(t, err)

	readers, err = svc.MessageReaders(ctx, principal(alice, tenantID), msg.ID)
	require.NoError(t, err)
	require.Len(t, readers, 1)
	assert.Equal(t, bob, readers[0].UserID)
	assert.Equal(t, "bob", readers[0].User.FullName)
}

func TestCanObserveSystemGroupAdmins(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	eventID, tenantID := seedEvent(store, alice)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSystemGroups(ctx, eventID, alice, nil))
	groups, err := store.SystemConversations(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	general := groups[0]

	// Plain non-participants are kept out.
	stranger := store.addUser("stranger")
	ok, err := svc.CanObserve(ctx, principal(stranger, tenantID), general.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Super-admins observe any system group.
	admin := rbac.Principal{UserID: store.addUser("admin"), IsSuperAdmin: true}
	ok, err = svc.CanObserve(ctx, admin, general.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Tenant managers observe system groups of their own tenant only.
	manager := rbac.Principal{UserID: store.addUser("manager"), TenantID: tenantID, IsTenantManager: true}
	ok, err = svc.CanObserve(ctx, manager, general.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	foreign := rbac.Principal{UserID: store.addUser("foreign"), TenantID: uuid.New(), IsTenantManager: true}
	ok, err = svc.CanObserve(ctx, foreign, general.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Admin status grants nothing extra on user-created conversations.
	group, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "private",
	})
	require.NoError(t, err)
	ok, err = svc.CanObserve(ctx, manager, group.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureSystemGroupsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	eventID, _ := seedEvent(store, alice)
	ctx := context.Background()

	depts := []models.Department{
		{ID: uuid.New(), EventID: eventID, Name: "Security"},
		{ID: uuid.New(), EventID: eventID, Name: "Catering"},
	}
	require.NoError(t, svc.EnsureSystemGroups(ctx, eventID, alice, depts))
	require.NoError(t, svc.EnsureSystemGroups(ctx, eventID, alice, depts))

	groups, err := store.SystemConversations(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	general := 0
	for _, g := range groups {
		if g.Kind == models.ConversationEvent {
			general++
			assert.Nil(t, g.DepartmentID)
		} else {
			assert.Equal(t, models.ConversationDepartment, g.Kind)
			assert.NotNil(t, g.DepartmentID)
		}
	}
	assert.Equal(t, 1, general)
}

func TestSyncSystemGroupMembership(t *testing.T) {
	svc, store, rbacStore := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store)
	ctx := context.Background()

	secID := uuid.New()
	catID := uuid.New()
	depts := []models.Department{
		{ID: secID, EventID: eventID, Name: "Security"},
		{ID: catID, EventID: eventID, Name: "Catering"},
	}
	require.NoError(t, svc.EnsureSystemGroups(ctx, eventID, alice, depts))

	inGroups := func(userID uuid.UUID) int {
		groups, err := store.SystemConversations(ctx, eventID)
		require.NoError(t, err)
		n := 0
		for _, g := range groups {
			p, err := store.Participant(ctx, g.ID, userID)
			require.NoError(t, err)
			if p != nil {
				n++
			}
		}
		return n
	}

	// Alice joins one department: she gets its group plus the general channel.
	store.addMember(eventID, alice, secID)
	require.NoError(t, svc.SyncSystemGroupMembership(ctx, principal(alice, tenantID), eventID))
	assert.Equal(t, 2, inGroups(alice))

	// A global chat:read override puts Bob in every system group without any
	// department membership.
	store.addMember(eventID, bob)
	rbacStore.grantGlobalChatRead(eventID, bob)
	require.NoError(t, svc.SyncSystemGroupMembership(ctx, principal(bob, tenantID), eventID))
	assert.Equal(t, 3, inGroups(bob))

	// Dropping Alice's event membership empties her system groups.
	store.removeMember(eventID, alice)
	require.NoError(t, svc.SyncSystemGroupMembership(ctx, principal(alice, tenantID), eventID))
	assert.Equal(t, 0, inGroups(alice))
}

func TestSyncIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	eventID, tenantID := seedEvent(store)
	ctx := context.Background()

	require.NoError(t, svc.EnsureSystemGroups(ctx, eventID, alice, nil))
	store.addMember(eventID, alice)

	require.NoError(t, svc.SyncSystemGroupMembership(ctx, principal(alice, tenantID), eventID))
	require.NoError(t, svc.SyncSystemGroupMembership(ctx, principal(alice, tenantID), eventID))

	groups, err := store.SystemConversations(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	parts, err := store.ParticipantsOf(ctx, groups[0].ID)
	require.NoError(t, err)
	assert.Len(t, parts, 1)
}

func TestMessageAttachmentsVerifiesConversation(t *testing.T) {
	svc, store, _ := newTestService(t)
	alice := store.addUser("alice")
	bob := store.addUser("bob")
	eventID, tenantID := seedEvent(store, alice, bob)
	ctx := context.Background()

	crew, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "crew",
		ParticipantIDs: []uuid.UUID{bob},
	})
	require.NoError(t, err)
	side, err := svc.CreateConversation(ctx, principal(alice, tenantID), CreateConversationInput{
		EventID: eventID, Kind: models.ConversationGroup, Title: "side",
	})
	require.NoError(t, err)

	msg, err := svc.SendMessage(ctx, principal(alice, tenantID), SendMessageInput{ConversationID: crew.ID, Body: "rig plan"})
	require.NoError(t, err)
	link := models.AttachmentLink{ID: uuid.New(), AttachmentID: uuid.New(), EntityType: models.EntityMessage, EntityID: msg.ID}
	store.links[msg.ID] = []models.AttachmentLink{link}

	got, err := svc.MessageAttachments(ctx, principal(bob, tenantID), crew.ID, msg.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, link.AttachmentID, got[0].AttachmentID)

	// A message from another conversation cannot be relayed into this room.
	_, err = svc.MessageAttachments(ctx, principal(alice, tenantID), side.ID, msg.ID)
	assert.True(t, apperr.IsNotFound(err))

	// Event members outside the conversation see nothing.
	carol := store.addUser("carol")
	store.addMember(eventID, carol)
	_, err = svc.MessageAttachments(ctx, principal(carol, tenantID), crew.ID, msg.ID)
	assert.True(t, apperr.IsForbidden(err))
}
