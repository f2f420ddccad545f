package conversations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/medtranslate/internal/access"
	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/domain"
	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/domain/user"
	"github.com/geocoder89/medtranslate/internal/gateway"
	"github.com/geocoder89/medtranslate/internal/repo/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranslator struct {
	mu             sync.Mutex
	translateCalls int
	summarizeCalls int
	summarized     [][]message.Message
	translateErr   error
}

func (f *fakeTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translateCalls++
	if f.translateErr != nil {
		return "", f.translateErr
	}
	return "[" + lang + "] " + text, nil
}

func (f *fakeTranslator) Summarize(_ context.Context, msgs []message.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarizeCalls++
	f.summarized = append(f.summarized, msgs)
	return "summary of " + msgs[0].OriginalText, nil
}

type fixture struct {
	svc     *Service
	tr      *fakeTranslator
	doctor  actorctx.Identity
	patient actorctx.Identity
	other   actorctx.Identity
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()

	mk := func(name, email, role string) actorctx.Identity {
		u, err := store.Users().Create(ctx, user.CreateParams{Name: name, Email: email, PasswordHash: "h", Role: role})
		require.NoError(t, err)
		return actorctx.Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	}

	tr := &fakeTranslator{}
	f := fixture{
		tr:      tr,
		doctor:  mk("Dr. A", "a@x.com", user.RoleDoctor),
		patient: mk("P", "p@x.com", user.RolePatient),
		other:   mk("Dr. B", "b@x.com", user.RoleDoctor),
	}
	f.svc = NewService(store.Conversations(), store.Messages(), store.Users(), tr)
	return f
}

func TestScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, created, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), conv.ID)
	assert.Equal(t, f.doctor.UserID, conv.DoctorID)
	assert.Equal(t, f.patient.UserID, conv.PatientID)

	m, err := f.svc.Send(ctx, f.patient, SendInput{ConversationID: conv.ID, Text: "Hello", TargetLanguage: "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.ID)
	require.NotNil(t, m.TranslatedText)
	assert.Equal(t, "[Spanish] Hello", *m.TranslatedText)
	assert.Equal(t, user.RolePatient, m.SenderRole)

	summary, err := f.svc.Summary(ctx, f.doctor, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary of Hello", summary)
	require.Equal(t, 1, f.tr.summarizeCalls)
	require.Len(t, f.tr.summarized[0], 1)

	_, err = f.svc.Messages(ctx, f.other, conv.ID)
	assert.ErrorIs(t, err, conversation.ErrForbidden)
}

func TestFindOrCreate_IdempotentFromEitherSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := f.svc.FindOrCreate(ctx, f.doctor, f.patient.UserID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
}

func TestFindOrCreate_Concurrent(t *testing.T) {
	f := newFixture(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[int64]int{}
		created int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, isNew, err := f.svc.FindOrCreate(context.Background(), f.patient, f.doctor.UserID)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[c.ID]++
			if isNew {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, 1)
	assert.Equal(t, 1, created)
}

func TestFindOrCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.FindOrCreate(ctx, f.patient, 0)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "doctor_id", ve.Field)

	// a patient naming another patient
	_, _, err = f.svc.FindOrCreate(ctx, f.patient, f.patient.UserID)
	require.True(t, errors.As(err, &ve))

	// a doctor naming a doctor
	_, _, err = f.svc.FindOrCreate(ctx, f.doctor, f.other.UserID)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "patient_id", ve.Field)

	_, _, err = f.svc.FindOrCreate(ctx, f.patient, 999)
	assert.ErrorIs(t, err, user.ErrNotFound)

	_, _, err = f.svc.FindOrCreate(ctx, actorctx.Identity{}, f.doctor.UserID)
	assert.ErrorIs(t, err, access.ErrAnonymous)
}

func TestNonParticipantDeniedEverywhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, f.patient, SendInput{ConversationID: conv.ID, Text: "Hi"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.other, conv.ID)
	assert.ErrorIs(t, err, conversation.ErrForbidden)

	_, err = f.svc.Messages(ctx, f.other, conv.ID)
	assert.ErrorIs(t, err, conversation.ErrForbidden)

	_, err = f.svc.Send(ctx, f.other, SendInput{ConversationID: conv.ID, Text: "sneaky"})
	assert.ErrorIs(t, err, conversation.ErrForbidden)

	_, err = f.svc.Summary(ctx, f.other, conv.ID)
	assert.ErrorIs(t, err, conversation.ErrForbidden)

	assert.Equal(t, 1, f.tr.translateCalls)
	assert.Equal(t, 0, f.tr.summarizeCalls)
}

func TestNotFoundBeforeForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.other, 77)
	assert.ErrorIs(t, err, conversation.ErrNotFound)

	_, err = f.svc.Messages(ctx, f.other, 77)
	assert.ErrorIs(t, err, conversation.ErrNotFound)

	_, err = f.svc.Send(ctx, f.other, SendInput{ConversationID: 77, Text: "x"})
	assert.ErrorIs(t, err, conversation.ErrNotFound)

	_, err = f.svc.Summary(ctx, f.other, 77)
	assert.ErrorIs(t, err, conversation.ErrNotFound)
}

func TestGet_IncludesNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.doctor, f.patient.UserID)
	require.NoError(t, err)

	d, err := f.svc.Get(ctx, f.patient, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. A", d.DoctorName)
	assert.Equal(t, "P", d.PatientName)
}

func TestSummary_EmptyNeverCallsModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)

	_, err = f.svc.Summary(ctx, f.doctor, conv.ID)
	assert.ErrorIs(t, err, gateway.ErrEmptyConversation)
	assert.Equal(t, 0, f.tr.summarizeCalls)
}

func TestSend_GatewayFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)

	f.tr.translateErr = &gateway.Error{Op: gateway.OpTranslate, Err: errors.New("quota")}
	_, err = f.svc.Send(ctx, f.patient, SendInput{ConversationID: conv.ID, Text: "Hello", TargetLanguage: "French"})

	var gerr *gateway.Error
	require.True(t, errors.As(err, &gerr))

	msgs, err := f.svc.Messages(ctx, f.patient, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSend_ValidationAndDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, f.patient, SendInput{ConversationID: conv.ID, Text: "   "})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 0, f.tr.translateCalls)

	m, err := f.svc.Send(ctx, f.doctor, SendInput{ConversationID: conv.ID, Text: " Hola "})
	require.NoError(t, err)
	assert.Equal(t, "Hola", m.OriginalText)
	assert.Equal(t, message.DefaultLanguage, m.Language)
	assert.Equal(t, "Dr. A", m.SenderName)
}

func TestLedgerOrderSurvivesClockStepBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clocks := []time.Time{base, base.Add(2 * time.Second), base.Add(time.Second)}
	texts := []string{"M1", "M2", "M3"}

	for i := range texts {
		at := clocks[i]
		f.svc.now = func() time.Time { return at }
		_, err := f.svc.Send(ctx, f.patient, SendInput{ConversationID: conv.ID, Text: texts[i]})
		require.NoError(t, err)
	}

	msgs, err := f.svc.Messages(ctx, f.doctor, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	for i, m := range msgs {
		assert.Equal(t, texts[i], m.OriginalText)
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(msgs[i-1].CreatedAt))
		}
	}
}

func TestListForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.FindOrCreate(ctx, f.patient, f.doctor.UserID)
	require.NoError(t, err)
	_, _, err = f.svc.FindOrCreate(ctx, f.patient, f.other.UserID)
	require.NoError(t, err)

	mine, err := f.svc.ListForUser(ctx, f.patient)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.svc.ListForUser(ctx, f.other)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, "P", theirs[0].CounterpartName)

	_, err = f.svc.ListForUser(ctx, actorctx.Identity{})
	assert.ErrorIs(t, err, access.ErrAnonymous)
}
