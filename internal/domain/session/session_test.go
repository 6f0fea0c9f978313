package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/phonoecho/internal/domain/scoring"
	"github.com/okian/phonoecho/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new in-memory store", t, func() {
		s := session.NewInMemoryStore()

		Convey("When a session is created", func() {
			st := session.NewAppState("hana", scoring.NewTracker(nil))
			tok := s.Create(ctx, st)

			Convey("Then it should be retrievable by its token", func() {
				So(tok, ShouldNotBeEmpty)
				got, ok := s.Get(ctx, tok)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, st)
				So(got.User, ShouldEqual, "hana")
				So(got.HasLesson(), ShouldBeFalse)
				So(s.Size(), ShouldEqual, 1)
			})

			Convey("And it is deleted", func() {
				So(s.Delete(ctx, tok), ShouldBeTrue)

				Convey("Then it should be gone", func() {
					_, ok := s.Get(ctx, tok)
					So(ok, ShouldBeFalse)
					So(s.Delete(ctx, tok), ShouldBeFalse)
					So(s.Size(), ShouldEqual, 0)
				})
			})
		})

		Convey("When an unknown token is looked up", func() {
			_, ok := s.Get(ctx, "nope")

			Convey("Then it should be missing", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})

	Convey("Given a store bounded to two sessions", t, func() {
		s := session.NewInMemoryStore(session.WithMaxSize(2))
		first := s.Create(ctx, session.NewAppState("a", nil))
		second := s.Create(ctx, session.NewAppState("b", nil))

		Convey("When a third session is created", func() {
			third := s.Create(ctx, session.NewAppState("c", nil))

			Convey("Then the oldest session should be evicted", func() {
				So(s.Size(), ShouldEqual, 2)
				_, ok := s.Get(ctx, first)
				So(ok, ShouldBeFalse)
				_, ok = s.Get(ctx, second)
				So(ok, ShouldBeTrue)
				_, ok = s.Get(ctx, third)
				So(ok, ShouldBeTrue)
			})
		})
	})

	Convey("Given a store with an idle TTL", t, func() {
		clock := &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
		s := session.NewInMemoryStore(session.WithTTL(time.Hour), session.WithClock(clock.Now))
		active := s.Create(ctx, session.NewAppState("active", nil))
		idle := s.Create(ctx, session.NewAppState("idle", nil))

		Convey("When time passes and only one session is used", func() {
			clock.Advance(40 * time.Minute)
			_, ok := s.Get(ctx, active)
			So(ok, ShouldBeTrue)
			clock.Advance(40 * time.Minute)

			Convey("Then the idle session should expire", func() {
				_, ok := s.Get(ctx, idle)
				So(ok, ShouldBeFalse)
				_, ok = s.Get(ctx, active)
				So(ok, ShouldBeTrue)
			})

			Convey("Then Sweep should remove it", func() {
				So(s.Sweep(ctx), ShouldEqual, 1)
				So(s.Size(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a token source that repeats", t, func() {
		tokens := []string{"dup", "dup", "fresh"}
		i := 0
		s := session.NewInMemoryStore(session.WithTokenSource(func() string {
			tok := tokens[i]
			i++
			return tok
		}))

		Convey("Then colliding tokens should be regenerated", func() {
			So(s.Create(ctx, session.NewAppState("a", nil)), ShouldEqual, "dup")
			So(s.Create(ctx, session.NewAppState("b", nil)), ShouldEqual, "fresh")
		})
	})
}

func TestStoreConcurrency(t *testing.T) {
	Convey("Given a store with concurrent logins", t, func() {
		ctx := context.Background()
		s := session.NewInMemoryStore(session.WithMaxSize(0))
		var wg sync.WaitGroup
		tokens := make([]string, 100)

		for i := range tokens {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tokens[i] = s.Create(ctx, session.NewAppState(fmt.Sprintf("u%d", i), nil))
			}(i)
		}
		wg.Wait()

		Convey("Then every session should be stored", func() {
			So(s.Size(), ShouldEqual, 100)
			for _, tok := range tokens {
				_, ok := s.Get(ctx, tok)
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestAppStateWith(t *testing.T) {
	Convey("Given one session used by parallel requests", t, func() {
		st := session.NewAppState("hana", nil)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = st.With(func(s *session.AppState) error {
					s.LessonIndex++
					return nil
				})
			}()
		}
		wg.Wait()

		Convey("Then updates should not be lost", func() {
			So(st.LessonIndex, ShouldEqual, session.NoLesson+50)
		})
	})
}
