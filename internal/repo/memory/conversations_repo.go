package memory

import (
	"context"
	"sort"
	"time"

	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/user"
)

type ConversationsRepo struct {
	s *Store
}

func (r *ConversationsRepo) FindOrCreate(_ context.Context, doctorID, patientID int64) (conversation.Conversation, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if id, ok := r.s.byPair[pair{doctorID, patientID}]; ok {
		return r.s.conversations[id], false, nil
	}

	if _, ok := r.s.users[doctorID]; !ok {
		return conversation.Conversation{}, false, user.ErrNotFound
	}
	if _, ok := r.s.users[patientID]; !ok {
		return conversation.Conversation{}, false, user.ErrNotFound
	}

	r.s.nextConvID++
	c := conversation.Conversation{
		ID:        r.s.nextConvID,
		DoctorID:  doctorID,
		PatientID: patientID,
		CreatedAt: r.s.now(),
	}
	r.s.conversations[c.ID] = c
	r.s.byPair[pair{doctorID, patientID}] = c.ID

	return c, true, nil
}

func (r *ConversationsRepo) GetByID(_ context.Context, id int64) (conversation.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return conversation.Conversation{}, conversation.ErrNotFound
	}
	return c, nil
}

func (r *ConversationsRepo) GetDetails(_ context.Context, id int64) (conversation.Details, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.conversations[id]
	if !ok {
		return conversation.Details{}, conversation.ErrNotFound
	}
	return conversation.Details{
		Conversation: c,
		DoctorName:   r.s.userName(c.DoctorID),
		PatientName:  r.s.userName(c.PatientID),
	}, nil
}

func (r *ConversationsRepo) ListForUser(_ context.Context, userID int64, role string) ([]conversation.Summary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]conversation.Summary, 0)
	for _, c := range r.s.conversations {
		var counterpart int64
		switch {
		case role == user.RoleDoctor && c.DoctorID == userID:
			counterpart = c.PatientID
		case role == user.RolePatient && c.PatientID == userID:
			counterpart = c.DoctorID
		default:
			continue
		}

		sum := conversation.Summary{
			ID:              c.ID,
			CreatedAt:       c.CreatedAt,
			CounterpartID:   counterpart,
			CounterpartName: r.s.userName(counterpart),
			CounterpartRole: user.Counterpart(role),
		}

		ledger := r.s.messages[c.ID]
		sum.MessageCount = len(ledger)
		if n := len(ledger); n > 0 {
			last := ledger[n-1].CreatedAt
			sum.LastMessageAt = &last
		}
		out = append(out, sum)
	}

	activity := func(s conversation.Summary) time.Time {
		if s.LastMessageAt != nil {
			return *s.LastMessageAt
		}
		return s.CreatedAt
	}

	sort.Slice(out, func(i, j int) bool {
		ai, aj := activity(out[i]), activity(out[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
