package contacts

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LilVoxy/campus_lostfound/realtime"
)

// Loader выполняет полный проход загрузки и агрегации
type Loader interface {
	Load(ctx context.Context, viewer string) ([]Preview, error)
}

// Feed лента изменений, на которую подписывается сессия
type Feed interface {
	Subscribe(filter realtime.Filter) (*realtime.Subscription, error)
}

// State текущее состояние списка контактов сессии
type State struct {
	Contacts  []Preview
	Loading   bool
	Err       error
	Seq       uint64
	UpdatedAt time.Time
}

// SessionOptions необязательные параметры сессии
type SessionOptions struct {
	// OnUpdate вызывается после применения каждого нового результата,
	// строго в порядке возрастания Seq
	OnUpdate func(State)
	Now      func() time.Time
}

// ContactFilter фильтр ленты: вставки в contact_attempts,
// где пользователь владелец объявления или инициатор
func ContactFilter(viewer string) realtime.Filter {
	return realtime.Filter{
		Table:   realtime.TableContactAttempts,
		Type:    realtime.Insert,
		Columns: []string{"posted_user_id", "contacted_by"},
		Value:   viewer,
	}
}

// Session живой список контактов одного пользователя. Каждое подходящее
// событие ленты и каждый ручной вызов Refresh запускают полный проход.
// Проходы могут перекрываться; применяется только результат с наибольшим
// порядковым номером, устаревшие отбрасываются.
type Session struct {
	viewer string
	loader Loader
	feed   Feed
	log    logrus.FieldLogger
	opts   SessionOptions

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	inflight int
	closed   bool
	state    State
	sub      *realtime.Subscription

	notifyMu     sync.Mutex
	lastNotified uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewSession создает сессию; подписка появляется только после Start
func NewSession(viewer string, loader Loader, feed Feed, log logrus.FieldLogger, opts SessionOptions) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		viewer: viewer,
		loader: loader,
		feed:   feed,
		log:    log.WithField("viewer", viewer),
		opts:   opts,
		done:   make(chan struct{}),
	}
}

// Viewer возвращает id пользователя сессии
func (s *Session) Viewer() string {
	return s.viewer
}

// Start подписывается на ленту и выполняет первую загрузку. Ошибка подписки
// только логируется: сессия продолжает работать через ручное обновление.
// Ошибка загрузки попадает в State.
func (s *Session) Start(ctx context.Context) error {
	if s.viewer == "" {
		return ErrNoViewer
	}

	if s.feed != nil {
		sub, err := s.feed.Subscribe(ContactFilter(s.viewer))
		if err != nil {
			s.log.Warnf("⚠️ Не удалось подписаться на изменения контактов, доступно только ручное обновление: %v", err)
		} else {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				sub.Unsubscribe()
				return ErrSessionClosed
			}
			s.sub = sub
			s.mu.Unlock()
			go s.listen(ctx, sub)
		}
	}

	if err := s.Refresh(ctx); err != nil && err != ErrSessionClosed {
		s.log.Errorf("❌ Ошибка первой загрузки контактов: %v", err)
	}
	return nil
}

// listen запускает новый проход на каждое событие ленты
func (s *Session) listen(ctx context.Context, sub *realtime.Subscription) {
	for {
		select {
		case <-s.done:
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			go func() {
				if err := s.Refresh(ctx); err != nil && err != ErrSessionClosed {
					s.log.Errorf("❌ Ошибка обновления контактов по событию: %v", err)
				}
			}()
		}
	}
}

// Refresh выполняет полный проход загрузки. Результат применяется,
// только если за время загрузки не был применен более новый проход.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.issued++
	seq := s.issued
	s.inflight++
	s.state.Loading = true
	s.mu.Unlock()

	previews, err := s.loader.Load(ctx, s.viewer)

	s.mu.Lock()
	s.inflight--
	if s.closed {
		s.mu.Unlock()
		return err
	}
	if seq <= s.applied {
		s.state.Loading = s.inflight > 0
		s.mu.Unlock()
		s.log.Debugf("ℹ️ Результат прохода %d устарел, отброшен", seq)
		return err
	}

	s.applied = seq
	s.state.Seq = seq
	s.state.Loading = s.inflight > 0
	s.state.UpdatedAt = s.opts.Now()
	if err != nil {
		s.state.Contacts = nil
		s.state.Err = err
	} else {
		s.state.Contacts = previews
		s.state.Err = nil
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return err
}

// State возвращает копию текущего состояния
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if s.state.Contacts != nil {
		st.Contacts = append([]Preview(nil), s.state.Contacts...)
	}
	return st
}

// notify передает состояние подписчику, пропуская устаревшие номера
func (s *Session) notify(st State) {
	if s.opts.OnUpdate == nil {
		return
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if st.Seq <= s.lastNotified {
		return
	}
	select {
	case <-s.done:
		return
	default:
	}
	s.lastNotified = st.Seq
	s.opts.OnUpdate(st)
}

// Close снимает подписку. Безопасно вызывать повторно и из разных горутин.
// Загрузки, завершившиеся после закрытия, не применяются.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		sub := s.sub
		s.sub = nil
		s.mu.Unlock()

		close(s.done)
		if sub != nil {
			sub.Unsubscribe()
		}
		s.log.Debug("👤 Сессия контактов закрыта")
	})
}

// Closed сообщает, закрыта ли сессия
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
