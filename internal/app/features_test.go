package app

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/jsamuelsen/inspira/internal/adapters/store/memory"
	"github.com/jsamuelsen/inspira/internal/domain"
)

// sessionWorld holds state shared across step definitions within a scenario.
type sessionWorld struct {
	store   *memory.Store
	policy  DeletionPolicy
	session *Session
}

var quoted = regexp.MustCompile(`"([^"]*)"`)

func newSessionWorld() *sessionWorld {
	base := time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)
	ticks := 0

	return &sessionWorld{
		store: memory.New(memory.WithClock(func() time.Time {
			ticks++
			return base.Add(time.Duration(ticks) * time.Minute)
		})),
		policy: DeletionStartsDraft,
	}
}

// InitializeSessionScenario registers step definitions for each scenario.
func InitializeSessionScenario(sc *godog.ScenarioContext) {
	var w *sessionWorld

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w = newSessionWorld()
		return ctx, nil
	})

	sc.Step(`^the deletion policy is "([^"]*)"$`, func(p string) error { return w.theDeletionPolicyIs(p) })
	sc.Step(`^the store holds quotes (.+) created in that order$`, func(list string) error { return w.theStoreHoldsQuotes(list) })
	sc.Step(`^the store holds (\d+) empty quotes?$`, func(n int) error { return w.theStoreHoldsEmptyQuotes(n) })
	sc.Step(`^the session is refreshed$`, func() error { return w.theSessionIsRefreshed() })
	sc.Step(`^I select the quote at position (\d+)$`, func(pos int) error { return w.iSelect(pos) })
	sc.Step(`^I delete the current quote$`, func() error { return w.iDeleteTheCurrentQuote() })
	sc.Step(`^I start a new entry$`, func() error { return w.iStartANewEntry() })
	sc.Step(`^I set the "([^"]*)" field to "([^"]*)"$`, func(f, v string) error { return w.iSetTheField(f, v) })
	sc.Step(`^the list reads (.+)$`, func(list string) error { return w.theListReads(list) })
	sc.Step(`^the displayed quote reads "([^"]*)"$`, func(text string) error { return w.theDisplayedQuoteReads(text) })
	sc.Step(`^the displayed quote is empty$`, func() error { return w.theDisplayedQuoteIsEmpty() })
	sc.Step(`^nothing is displayed$`, func() error { return w.nothingIsDisplayed() })
	sc.Step(`^the store holds (\d+) quotes?$`, func(n int) error { return w.theStoreHoldsNQuotes(n) })
}

func (w *sessionWorld) theDeletionPolicyIs(p string) error {
	policy, err := ParseDeletionPolicy(p)
	if err != nil {
		return err
	}

	w.policy = policy

	return nil
}

func (w *sessionWorld) theStoreHoldsQuotes(list string) error {
	ctx := context.Background()

	for _, m := range quoted.FindAllStringSubmatch(list, -1) {
		q, err := w.store.Create(ctx)
		if err != nil {
			return err
		}

		text := m[1]
		if _, err := w.store.Update(ctx, q.ID, domain.QuoteUpdate{Text: &text}); err != nil {
			return err
		}
	}

	return nil
}

func (w *sessionWorld) theStoreHoldsEmptyQuotes(n int) error {
	for range n {
		if _, err := w.store.Create(context.Background()); err != nil {
			return err
		}
	}

	return nil
}

func (w *sessionWorld) theSessionIsRefreshed() error {
	w.session = NewSession(SessionConfig{
		Store:            w.store,
		Logger:           discardLogger(),
		DeletionPolicy:   w.policy,
		StrictInvariants: true,
	})

	_, err := w.session.Refresh(context.Background())

	return err
}

func (w *sessionWorld) iSelect(pos int) error {
	_, err := w.session.SelectExisting(context.Background(), pos)
	return err
}

func (w *sessionWorld) iDeleteTheCurrentQuote() error {
	_, err := w.session.DeleteCurrent(context.Background())
	return err
}

func (w *sessionWorld) iStartANewEntry() error {
	_, err := w.session.StartNewEntry(context.Background())
	return err
}

func (w *sessionWorld) iSetTheField(name, value string) error {
	field, err := domain.ParseField(name)
	if err != nil {
		return err
	}

	_, err = w.session.UpdateField(context.Background(), field, value)

	return err
}

func (w *sessionWorld) theListReads(list string) error {
	var want []string
	for _, m := range quoted.FindAllStringSubmatch(list, -1) {
		want = append(want, m[1])
	}

	var got []string
	for _, q := range w.session.Quotes() {
		got = append(got, q.Text)
	}

	if !slices.Equal(want, got) {
		return fmt.Errorf("expected list %q, got %q", want, got)
	}

	return nil
}

func (w *sessionWorld) theDisplayedQuoteReads(text string) error {
	q, _ := w.session.Displayed()
	if q == nil {
		return fmt.Errorf("expected %q to be displayed, nothing is", text)
	}

	if q.Text != text {
		return fmt.Errorf("expected displayed quote %q, got %q", text, q.Text)
	}

	return nil
}

func (w *sessionWorld) theDisplayedQuoteIsEmpty() error {
	q, _ := w.session.Displayed()
	if q == nil {
		return fmt.Errorf("expected an empty draft to be displayed, nothing is")
	}

	if !w.session.EmptinessRule().IsEmpty(q) {
		return fmt.Errorf("expected displayed quote %s to be empty", q.ID)
	}

	return nil
}

func (w *sessionWorld) nothingIsDisplayed() error {
	if q, _ := w.session.Displayed(); q != nil {
		return fmt.Errorf("expected nothing displayed, got %s", q.ID)
	}

	return nil
}

func (w *sessionWorld) theStoreHoldsNQuotes(n int) error {
	all, err := w.store.ListAll(context.Background())
	if err != nil {
		return err
	}

	if len(all) != n {
		return fmt.Errorf("expected %d quotes in store, got %d", n, len(all))
	}

	return nil
}

// TestSessionFeatures runs the GoDog scenarios for Session.
func TestSessionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeSessionScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/features"},
			TestingT: t,
			Tags:     os.Getenv("GODOG_TAGS"),
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
