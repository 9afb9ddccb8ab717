package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/notifications"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/stretchr/testify/require"
)

type fakeDirectory map[string]*models.User

func (d fakeDirectory) Get(ctx context.Context, id string) (*models.User, error) {
	if u, ok := d[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (d fakeDirectory) ListAdmins(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range d {
		if u.Admin {
			out = append(out, u)
		}
	}
	return out, nil
}

type emitted struct{ room, event string }

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(room, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{room, event})
}

func (r *recorder) has(room, event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.room == room && e.event == event {
			return true
		}
	}
	return false
}

type counter struct{ calls []string }

func (c *counter) RecordConversation(ctx context.Context, id string) error {
	c.calls = append(c.calls, id)
	return nil
}

var (
	vaUser    = &models.User{ID: "va-1", Name: "Maria", Role: models.RoleVA}
	bizUser   = &models.User{ID: "biz-1", Name: "Acme", Role: models.RoleBusiness}
	otherVA   = &models.User{ID: "va-2", Role: models.RoleVA}
	adminUser = &models.User{ID: "admin-1", Admin: true}
)

type fixture struct {
	svc     *Service
	rec     *recorder
	notes   *notifications.Service
	counter *counter
}

func newFixture(percentage int) *fixture {
	rec := &recorder{}
	notes := notifications.NewService(notifications.NewMemoryRepository(), nil)
	dir := fakeDirectory{vaUser.ID: vaUser, bizUser.ID: bizUser, otherVA.ID: otherVA, adminUser.ID: adminUser}
	cnt := &counter{}
	gate := func(ctx context.Context, id string) (profile.Completion, int, error) {
		return profile.Completion{Percentage: percentage}, profile.GateThreshold, nil
	}
	svc := NewService(NewMemoryRepository(), dir, notes, rec, WithGate(gate), WithConversationCounter(cnt))
	return &fixture{svc: svc, rec: rec, notes: notes, counter: cnt}
}

func TestRenderHTML(t *testing.T) {
	require.Equal(t, "a &lt;b&gt; &amp; c<br>d<br>e", RenderHTML("a <b> & c\r\nd\ne"))
}

func TestStart_VAToBusinessIsDirect(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()

	res, err := f.svc.Start(ctx, vaUser, bizUser.ID, "Hello <there>", "tmp-1")
	require.NoError(t, err)
	require.True(t, res.IsNew)
	require.False(t, res.Conversation.IsIntercepted)
	require.Equal(t, "tmp-1", res.Message.ClientID)
	require.Equal(t, "Hello &lt;there&gt;", res.Message.BodyHTML)
	require.Equal(t, 1, res.Conversation.UnreadCount.Business)
	require.True(t, f.rec.has("biz-1", "new_message"))
	require.True(t, f.rec.has("biz-1", "new_conversation"))
	require.Equal(t, []string{"va-1"}, f.counter.calls)

	unread, err := f.notes.UnreadCount(ctx, bizUser.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), unread)

	again, err := f.svc.Start(ctx, vaUser, bizUser.ID, "Following up", "")
	require.NoError(t, err)
	require.False(t, again.IsNew)
	require.Equal(t, res.Conversation.ID, again.Conversation.ID)

	_, err = f.svc.Start(ctx, vaUser, otherVA.ID, "hi", "")
	require.ErrorIs(t, err, ErrInvalidPeer)
}

func TestStart_BusinessToVAIsIntercepted(t *testing.T) {
	f := newFixture(85)
	ctx := context.Background()

	res, err := f.svc.Start(ctx, bizUser, vaUser.ID, "We would like to hire you", "")
	require.NoError(t, err)
	c := res.Conversation
	require.True(t, c.IsIntercepted)
	require.Equal(t, AdminPending, c.AdminStatus)
	require.Equal(t, 1, c.UnreadCount.Admin)
	require.Zero(t, c.UnreadCount.VA)
	require.True(t, f.rec.has("admin-notifications", "new_conversation"))
	require.True(t, f.rec.has("admin-notifications", "admin_unread_update"))
	require.False(t, f.rec.has("va-1", "new_message"))
	require.Empty(t, f.counter.calls)

	adminNotes, _, err := f.notes.List(ctx, adminUser.ID, false, 0)
	require.NoError(t, err)
	require.Len(t, adminNotes, 1)
	require.Equal(t, notifications.TypeInterceptedConversation, adminNotes[0].Type)

	// the VA cannot see or open it
	list, page, err := f.svc.List(ctx, vaUser, 1, 10)
	require.NoError(t, err)
	require.Empty(t, list)
	require.Zero(t, page.Total)
	_, err = f.svc.Get(ctx, vaUser, c.ID, 1, 10)
	require.ErrorIs(t, err, ErrForbidden)
	ok, err := f.svc.IsParticipant(ctx, c.ID, vaUser.ID)
	require.NoError(t, err)
	require.False(t, ok)

	list, _, err = f.svc.List(ctx, bizUser, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestStart_GateBlocksIncompleteBusiness(t *testing.T) {
	f := newFixture(60)
	_, err := f.svc.Start(context.Background(), bizUser, vaUser.ID, "hi", "")
	var gerr *GateError
	require.True(t, errors.As(err, &gerr))
	require.Equal(t, 60, gerr.Completion.Percentage)
	require.Equal(t, 80, gerr.Threshold)

	ok, completion, _, err := f.svc.Eligibility(context.Background(), bizUser)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 60, completion.Percentage)
	ok, _, _, err = f.svc.Eligibility(context.Background(), vaUser)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSendReadBlockArchive(t *testing.T) {
	f := newFixture(0)
	ctx := context.Background()
	res, err := f.svc.Start(ctx, vaUser, bizUser.ID, "first", "")
	require.NoError(t, err)
	id := res.Conversation.ID

	_, err = f.svc.Send(ctx, bizUser, id, "reply\nline two", "c-2", "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, otherVA, id, "intruder", "", "")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Send(ctx, vaUser, id, "   ", "", "")
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))

	n, err := f.svc.UnreadCount(ctx, vaUser)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	read, err := f.svc.MarkRead(ctx, vaUser, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), read)
	require.True(t, f.rec.has("biz-1", "conversation:read"))
	n, err = f.svc.UnreadCount(ctx, vaUser)
	require.NoError(t, err)
	require.Zero(t, n)

	thread, err := f.svc.Get(ctx, vaUser, id, 1, 10)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	require.Equal(t, "first", thread.Messages[0].Body)
	require.Equal(t, "reply<br>line two", thread.Messages[1].BodyHTML)
	require.Equal(t, int64(2), thread.Pagination.Total)

	_, err = f.svc.SetBlocked(ctx, bizUser, id, true)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, vaUser, id, "are you there?", "", "")
	require.ErrorIs(t, err, ErrBlocked)
	_, err = f.svc.Send(ctx, bizUser, id, "still can write", "", "")
	require.NoError(t, err)
	_, err = f.svc.SetBlocked(ctx, bizUser, id, false)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, vaUser, id, "thanks", "", "")
	require.NoError(t, err)

	_, err = f.svc.Archive(ctx, vaUser, id)
	require.NoError(t, err)
	list, _, err := f.svc.List(ctx, vaUser, 1, 10)
	require.NoError(t, err)
	require.Empty(t, list)
	list, _, err = f.svc.List(ctx, bizUser, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestBusinessReplyInInterceptedConversationReopensReview(t *testing.T) {
	f := newFixture(90)
	ctx := context.Background()
	res, err := f.svc.Start(ctx, bizUser, vaUser.ID, "hello", "")
	require.NoError(t, err)
	c := res.Conversation
	replied := AdminReplied
	require.NoError(t, f.svc.Repo().UpdateAdminState(ctx, c.ID, AdminUpdate{AdminStatus: &replied, At: time.Now()}))

	_, err = f.svc.Send(ctx, bizUser, c.ID, "thanks, when can we talk?", "", "")
	require.NoError(t, err)
	got, err := f.svc.Repo().GetConversation(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, AdminPending, got.AdminStatus)
	require.Equal(t, 2, got.UnreadCount.Admin)
	require.Equal(t, 2, got.MessagesCount)
}

func TestStats(t *testing.T) {
	f := newFixture(90)
	ctx := context.Background()
	_, err := f.svc.Start(ctx, vaUser, bizUser.ID, "one", "")
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, bizUser, vaUser.ID, "two", "")
	require.NoError(t, err)
	total, active, msgs, err := f.svc.Stats(ctx, f.svc.now().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, int64(2), active)
	require.Equal(t, int64(2), msgs)
}

// interleavingRepo lands a message between the read and the write of every
// conversation mutation.
type interleavingRepo struct {
	*MemoryRepository
	armed bool
}

func (r *interleavingRepo) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	c, err := r.MemoryRepository.GetConversation(ctx, id)
	if err != nil || !r.armed {
		return c, err
	}
	last := LastMessage{Body: "are you there?", Sender: bizUser.ID, CreatedAt: time.Now()}
	if err := r.MemoryRepository.RecordMessage(ctx, id, last, map[string]int{ReaderVA: 1}); err != nil {
		return nil, err
	}
	return c, nil
}

func TestArchiveAndBlockKeepConcurrentCounters(t *testing.T) {
	ctx := context.Background()
	repo := &interleavingRepo{MemoryRepository: NewMemoryRepository()}
	notes := notifications.NewService(notifications.NewMemoryRepository(), nil)
	dir := fakeDirectory{vaUser.ID: vaUser, bizUser.ID: bizUser}
	svc := NewService(repo, dir, notes, &recorder{})

	res, err := svc.Start(ctx, vaUser, bizUser.ID, "hello", "")
	require.NoError(t, err)
	id := res.Conversation.ID

	repo.armed = true
	_, err = svc.Archive(ctx, vaUser, id)
	require.NoError(t, err)
	_, err = svc.SetBlocked(ctx, vaUser, id, true)
	require.NoError(t, err)
	repo.armed = false

	got, err := repo.GetConversation(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, got.MessagesCount)
	require.Equal(t, 2, got.UnreadCount.VA)
	require.Equal(t, "are you there?", got.LastMessage.Body)
	require.Equal(t, []string{vaUser.ID}, got.ArchivedBy)
	require.NotNil(t, got.VABlockedAt)
}
