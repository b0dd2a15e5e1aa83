// Package orchestrator runs bulk holiday classification. It partitions a
// batch by cache presence, classifies the remainder with the AI classifier,
// runs the pattern matcher over the whole batch and merges everything into
// per-holiday collection groups.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/holidarr/holidarr/internal/aiclassifier"
	"github.com/holidarr/holidarr/internal/classcache"
	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/matcher"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/metrics"
	"github.com/holidarr/holidarr/internal/patterns"
)

// Partitioner splits a batch by classification cache presence.
type Partitioner interface {
	Partition(ctx context.Context, items []media.Item) (classcache.Partition, error)
}

// Classifier resolves a single item.
type Classifier interface {
	Classify(ctx context.Context, item media.Item) (*aiclassifier.Result, error)
}

// TitleSource supplies supplementary corpus titles for the matcher.
type TitleSource interface {
	FetchTitles(ctx context.Context, skip bool, filter holiday.Set) map[holiday.Holiday][]string
}

// Request is one bulk classification run.
type Request struct {
	Media []media.Item
	// SelectedHolidays limits the output. Empty selects every holiday.
	SelectedHolidays []holiday.Holiday
	UseAI            bool
	// Threshold overrides the matcher threshold when positive.
	Threshold int
}

// Group is a named bucket of one media kind for one holiday, addressed by
// the media server as a collection.
type Group struct {
	Name    string
	Holiday holiday.Holiday
	Kind    media.Kind
	Items   []media.Item
}

// MarshalJSON encodes items in their wire envelope.
func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string           `json:"name"`
		Holiday holiday.Holiday  `json:"holiday"`
		Kind    media.Kind       `json:"kind"`
		Items   []media.Envelope `json:"items"`
	}{g.Name, g.Holiday, g.Kind, media.EncodeAll(g.Items)})
}

// GroupName returns the collection name for a holiday and media kind.
func GroupName(h holiday.Holiday, kind media.Kind) string {
	if kind == media.KindEpisode {
		return h.String() + " TV"
	}
	return h.String() + " Movies"
}

// Summary is the outcome of a run. Results holds the actionable, selected
// classifications of every item resolved through the cache or the AI
// classifier; items resolved only by the matcher appear in Matches.
type Summary struct {
	RunID      string                              `json:"runId"`
	Cached     int                                 `json:"cached"`
	Classified int                                 `json:"classified"`
	Failed     int                                 `json:"failed"`
	Total      int                                 `json:"total"`
	Results    map[string][]holiday.Classification `json:"results"`
	Matches    []matcher.HolidayMatch              `json:"matches"`
	Groups     []Group                             `json:"groups"`
}

// Service runs bulk classification.
type Service struct {
	cache      Partitioner
	classifier Classifier
	titles     TitleSource
	library    patterns.Library
	threshold  int
	observer   Observer
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	newID      func() string
}

// NewService creates the orchestrator. AI classification and corpus titles
// stay disabled until their collaborators are set.
func NewService(cache Partitioner, library patterns.Library, logger zerolog.Logger) *Service {
	l := logger.With().Str("component", "orchestrator").Logger()
	return &Service{
		cache:     cache,
		library:   library,
		threshold: matcher.DefaultThreshold,
		observer:  NewLogObserver(logger),
		logger:    l,
		newID:     uuid.NewString,
	}
}

// SetClassifier enables AI classification.
func (s *Service) SetClassifier(c Classifier) {
	s.classifier = c
}

// SetTitleSource enables corpus titles in the matcher.
func (s *Service) SetTitleSource(t TitleSource) {
	s.titles = t
}

// SetObserver replaces the default log observer.
func (s *Service) SetObserver(o Observer) {
	if o != nil {
		s.observer = o
	}
}

// SetMetrics sets the metrics collectors.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetThreshold sets the default matcher threshold.
func (s *Service) SetThreshold(threshold int) {
	if threshold > 0 {
		s.threshold = threshold
	}
}

// AIEnabled reports whether a classifier is configured.
func (s *Service) AIEnabled() bool {
	return s.classifier != nil
}

// Run executes one bulk classification. Per-item failures are counted, not
// returned. Cancelling ctx stops AI classification before the next item; the
// matcher still runs and the partial summary is returned with ctx's error.
func (s *Service) Run(ctx context.Context, req Request) (*Summary, error) {
	items := media.Dedupe(compact(req.Media))
	selected := holiday.NewSet(req.SelectedHolidays...)
	if len(selected) == 0 {
		selected = holiday.NewSet(holiday.All()...)
	}

	if req.UseAI && s.classifier == nil {
		s.logger.Warn().Msg("AI classification requested but no backend is configured")
	}

	run := RunInfo{
		ID:        s.newID(),
		Total:     len(items),
		UseAI:     req.UseAI && s.classifier != nil,
		StartedAt: time.Now(),
	}
	summary := &Summary{
		RunID:   run.ID,
		Total:   len(items),
		Results: make(map[string][]holiday.Classification),
	}

	part, err := s.cache.Partition(ctx, items)
	if err != nil {
		s.logger.Warn().Err(err).Str("runId", run.ID).Msg("Cache partition failed, treating every item as uncached")
		part = classcache.Partition{NeedsClassification: items}
	}
	run.NeedsClassification = len(part.NeedsClassification)
	s.observer.RunStarted(run)

	byHoliday := make(map[holiday.Holiday][]media.Item)
	fold := func(item media.Item, cs []holiday.Classification) {
		kept := holiday.FilterActionable(cs, selected)
		summary.Results[media.ExternalID(item)] = kept
		for _, c := range kept {
			byHoliday[c.Holiday] = append(byHoliday[c.Holiday], item)
		}
	}

	for i, ci := range part.Cached {
		fold(ci.Item, ci.Record.Classifications)
		summary.Cached++
		s.observer.ItemProcessed(run, i, ci.Item, OutcomeCached, nil)
	}

	var runErr error
	if run.UseAI {
		runErr = s.classifyAll(ctx, run, part, summary, fold)
	}

	summary.Matches = mergeMatches(byHoliday, s.match(ctx, items, selected, req.Threshold))
	summary.Groups = buildGroups(summary.Matches)

	s.metrics.AddItems(string(OutcomeCached), summary.Cached)
	s.metrics.AddItems(string(OutcomeClassified), summary.Classified)
	s.metrics.AddItems(string(OutcomeFailed), summary.Failed)

	s.observer.RunFinished(run, summary, runErr)
	return summary, runErr
}

func (s *Service) classifyAll(ctx context.Context, run RunInfo, part classcache.Partition, summary *Summary, fold func(media.Item, []holiday.Classification)) error {
	offset := len(part.Cached)
	for i, item := range part.NeedsClassification {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := s.classifier.Classify(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Failed++
			s.observer.ItemProcessed(run, offset+i, item, OutcomeFailed, err)
			continue
		}

		fold(item, res.Classifications)
		outcome := OutcomeClassified
		switch {
		case res.Cached:
			outcome = OutcomeCached
			summary.Cached++
		case res.ContentFiltered:
			outcome = OutcomeContentFiltered
			summary.Classified++
		default:
			summary.Classified++
		}
		s.observer.ItemProcessed(run, offset+i, item, outcome, nil)
	}
	return nil
}

// Match runs only the pattern matcher over items. Empty holidays selects
// every holiday with patterns; a non-positive threshold uses the default.
func (s *Service) Match(ctx context.Context, items []media.Item, holidays []holiday.Holiday, threshold int) []matcher.HolidayMatch {
	selected := holiday.NewSet(holidays...)
	if len(selected) == 0 {
		selected = holiday.NewSet(holiday.All()...)
	}
	return s.match(ctx, media.Dedupe(compact(items)), selected, threshold)
}

// match runs the pattern matcher for the selected holidays the library has
// patterns for.
func (s *Service) match(ctx context.Context, items []media.Item, selected holiday.Set, threshold int) []matcher.HolidayMatch {
	var holidays []holiday.Holiday
	for _, h := range s.library.Order() {
		if selected.Has(h) {
			holidays = append(holidays, h)
		}
	}
	if len(holidays) == 0 || len(items) == 0 {
		return nil
	}

	var titles map[holiday.Holiday][]string
	if s.titles != nil {
		titles = s.titles.FetchTitles(ctx, false, holiday.NewSet(holidays...))
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	m := matcher.New(s.library, titles, matcher.WithThreshold(s.threshold))
	return m.FindMatchesWithThreshold(items, threshold, holidays...)
}

// mergeMatches unions AI-derived items into the matcher's output per
// holiday, deduplicated by external id with matcher items first.
func mergeMatches(ai map[holiday.Holiday][]media.Item, matches []matcher.HolidayMatch) []matcher.HolidayMatch {
	fromMatcher := make(map[holiday.Holiday]matcher.HolidayMatch, len(matches))
	for _, m := range matches {
		fromMatcher[m.Holiday] = m
	}

	var out []matcher.HolidayMatch
	for _, h := range holiday.All() {
		pm, ok := fromMatcher[h]
		if !ok && len(ai[h]) == 0 {
			continue
		}

		merged := matcher.HolidayMatch{
			Holiday:  h,
			Episodes: append([]*media.Episode(nil), pm.Episodes...),
			Movies:   append([]*media.Movie(nil), pm.Movies...),
		}
		seen := make(map[string]struct{}, len(merged.Episodes)+len(merged.Movies))
		for _, item := range merged.Items() {
			seen[media.ExternalID(item)] = struct{}{}
		}
		for _, item := range ai[h] {
			id := media.ExternalID(item)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			switch v := item.(type) {
			case *media.Episode:
				merged.Episodes = append(merged.Episodes, v)
			case *media.Movie:
				merged.Movies = append(merged.Movies, v)
			}
		}
		out = append(out, merged)
	}
	return out
}

func buildGroups(matches []matcher.HolidayMatch) []Group {
	groups := make([]Group, 0, 2*len(matches))
	for _, m := range matches {
		if len(m.Episodes) > 0 {
			items := make([]media.Item, 0, len(m.Episodes))
			for _, ep := range m.Episodes {
				items = append(items, ep)
			}
			groups = append(groups, Group{Name: GroupName(m.Holiday, media.KindEpisode), Holiday: m.Holiday, Kind: media.KindEpisode, Items: items})
		}
		if len(m.Movies) > 0 {
			items := make([]media.Item, 0, len(m.Movies))
			for _, mv := range m.Movies {
				items = append(items, mv)
			}
			groups = append(groups, Group{Name: GroupName(m.Holiday, media.KindMovie), Holiday: m.Holiday, Kind: media.KindMovie, Items: items})
		}
	}
	return groups
}

func compact(items []media.Item) []media.Item {
	out := make([]media.Item, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}
