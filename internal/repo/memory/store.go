package memory

import (
	"sync"
	"time"

	"github.com/geocoder89/medtranslate/internal/domain/conversation"
	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/domain/user"
)

type pair struct {
	doctorID  int64
	patientID int64
}

// Store holds every table behind one lock, so the repos see a consistent view
// the way a single database would.
type Store struct {
	mu sync.RWMutex

	now func() time.Time

	users        map[int64]user.User
	usersByEmail map[string]int64
	nextUserID   int64

	conversations map[int64]conversation.Conversation
	byPair        map[pair]int64
	nextConvID    int64

	messages      map[int64][]message.Message // conversation id -> ledger
	nextMessageID int64
}

func NewStore() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		users:         make(map[int64]user.User),
		usersByEmail:  make(map[string]int64),
		conversations: make(map[int64]conversation.Conversation),
		byPair:        make(map[pair]int64),
		messages:      make(map[int64][]message.Message),
	}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{s: s}
}

func (s *Store) Conversations() *ConversationsRepo {
	return &ConversationsRepo{s: s}
}

func (s *Store) Messages() *MessagesRepo {
	return &MessagesRepo{s: s}
}

func (s *Store) userName(id int64) string {
	return s.users[id].Name
}
