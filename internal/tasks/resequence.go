package tasks

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chartlog/internal/match"
	"github.com/desertthunder/chartlog/internal/models"
	"github.com/desertthunder/chartlog/internal/repositories"
	"github.com/desertthunder/chartlog/internal/shared"
)

// farFutureKey orders undated blocks with no following dated song after every
// real date.
const farFutureKey = "9999-12-31"

// ResequenceUpdate moves one song from its current sequence slot to a new one.
// Ephemeral: produced by planning, consumed by apply, never persisted.
type ResequenceUpdate struct {
	ID           string `json:"id"`
	FromSequence int    `json:"from"`
	ToSequence   int    `json:"to"`
}

// Inversion is a diagnostic: a pair of dated songs whose current sequence
// order contradicts their date order.
type Inversion struct {
	EarlierID   string `json:"earlier_id"`
	EarlierDate string `json:"earlier_date"`
	LaterID     string `json:"later_id"`
	LaterDate   string `json:"later_date"`
}

// DateIssue is a diagnostic for a stored date the parser rejected. The song is
// treated as undated for ordering purposes.
type DateIssue struct {
	SongID   string `json:"song_id"`
	DateText string `json:"date_text"`
}

// ResequencePlan is the outcome of the planning phase.
type ResequencePlan struct {
	Total      int                 `json:"total"`
	Updates    []ResequenceUpdate  `json:"updates"`
	Inversions []Inversion         `json:"inversions,omitempty"`
	DateIssues []DateIssue         `json:"date_issues,omitempty"`
}

// ResequenceReport is the outcome of an apply run.
type ResequenceReport struct {
	Plan    *ResequencePlan `json:"plan"`
	Applied int             `json:"applied"`
	Failed  int             `json:"failed"`
}

// ResequenceOpts restricts a run to a contiguous slice of current sequence
// values, for diagnosis. Zero bounds mean the whole catalog.
type ResequenceOpts struct {
	FromSeq int
	ToSeq   int
}

// Resequencer recomputes the sequence column so dated songs are in
// chronological order while every undated song stays anchored immediately
// before the next dated song that followed it in the previous order.
//
// One invocation moves through Planning, then either Diagnosed (dry run) or
// Applying, then Done; a fetch failure or length mismatch during Planning
// aborts with no writes.
type Resequencer struct {
	songs  *repositories.SongRepository
	logger *log.Logger
}

// NewResequencer creates a resequencer over the song repository.
func NewResequencer(songs *repositories.SongRepository, logger *log.Logger) *Resequencer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resequencer{songs: songs, logger: logger}
}

type seqItem struct {
	id      string
	seq     int
	dateKey string // ISO date, or "" for undated
}

type undatedBlock struct {
	nextKey  string // date of the next dated song after the block
	startPos int    // original position, for stable ordering between blocks
	items    []seqItem
}

// Diagnose computes the plan without writing anything.
func (r *Resequencer) Diagnose(opts ResequenceOpts) (*ResequencePlan, error) {
	return r.plan(opts)
}

// Apply computes the plan and writes it in two passes: every changing song
// first moves to a temporary out-of-range slot (its target plus an offset
// exceeding any in-use sequence), then to its real target. The detour keeps
// the store's uniqueness constraint satisfied at every intermediate step
// without a multi-row transaction. Individual write failures are logged and
// counted, not fatal.
func (r *Resequencer) Apply(opts ResequenceOpts) (*ResequenceReport, error) {
	plan, err := r.plan(opts)
	if err != nil {
		return nil, err
	}

	report, err := r.applyUpdates(plan.Updates)
	if err != nil {
		return nil, err
	}
	report.Plan = plan

	r.logger.Info("resequence applied", "planned", len(plan.Updates), "applied", report.Applied, "failed", report.Failed)
	return report, nil
}

// Renumber is the legacy whole-catalog variant: it assigns 1..N in current
// sequence order with no undated-block preservation, skipping no-op writes.
// Targets are assigned in ascending order against an ascending current order,
// so no intermediate write can collide.
func (r *Resequencer) Renumber() (*ResequenceReport, error) {
	songs, err := r.songs.ListBySequence(0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", shared.ErrResequenceAborted, err)
	}

	report := &ResequenceReport{Plan: &ResequencePlan{Total: len(songs)}}

	for i, song := range songs {
		want := i + 1
		if song.Sequence() == want {
			continue
		}

		report.Plan.Updates = append(report.Plan.Updates, ResequenceUpdate{ID: song.ID(), FromSequence: song.Sequence(), ToSequence: want})
		if err := r.songs.UpdateSequence(song.ID(), want); err != nil {
			r.logger.Error("renumber write failed", "song", song.ID(), "target", want, "err", err)
			report.Failed++
			continue
		}
		report.Applied++
	}

	return report, nil
}

// Move repositions one song to a 1-based position in the current ordering and
// rewrites sequences through the same two-phase path as Apply. This is the
// explicit-reorder operation; everything else leaves sequence mutation to the
// resequencer.
func (r *Resequencer) Move(id string, position int) (*ResequenceReport, error) {
	songs, err := r.songs.ListBySequence(0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", shared.ErrResequenceAborted, err)
	}

	index := -1
	for i, song := range songs {
		if song.ID() == id {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}

	if position < 1 {
		position = 1
	}
	if position > len(songs) {
		position = len(songs)
	}

	moved := songs[index]
	reordered := append([]*models.Song{}, songs[:index]...)
	reordered = append(reordered, songs[index+1:]...)
	reordered = append(reordered[:position-1], append([]*models.Song{moved}, reordered[position-1:]...)...)

	slots := make([]int, len(songs))
	for i, song := range songs {
		slots[i] = song.Sequence()
	}

	plan := &ResequencePlan{Total: len(songs)}
	for k, song := range reordered {
		if song.Sequence() != slots[k] {
			plan.Updates = append(plan.Updates, ResequenceUpdate{ID: song.ID(), FromSequence: song.Sequence(), ToSequence: slots[k]})
		}
	}

	report, err := r.applyUpdates(plan.Updates)
	if err != nil {
		return nil, err
	}
	report.Plan = plan

	return report, nil
}

// plan fetches the slice in current order, groups it, and computes the final
// order and the updates needed to reach it.
func (r *Resequencer) plan(opts ResequenceOpts) (*ResequencePlan, error) {
	songs, err := r.songs.ListBySequence(opts.FromSeq, opts.ToSeq)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", shared.ErrResequenceAborted, err)
	}

	plan := &ResequencePlan{Total: len(songs)}

	items := make([]seqItem, len(songs))
	for i, song := range songs {
		item := seqItem{id: song.ID(), seq: song.Sequence()}
		if date := song.FirstListenDate(); date != nil && *date != "" {
			if iso, ok := match.ParseDate(*date); ok {
				item.dateKey = iso
			} else {
				plan.DateIssues = append(plan.DateIssues, DateIssue{SongID: song.ID(), DateText: *date})
			}
		}
		items[i] = item
	}

	plan.Inversions = findInversions(items)

	final, err := finalOrder(items)
	if err != nil {
		return nil, err
	}

	// Slot k of the final order receives the k-th smallest sequence value
	// among the processed songs, so the slice's sequence set is preserved.
	slots := make([]int, len(items))
	for i, item := range items {
		slots[i] = item.seq
	}
	sort.Ints(slots)

	for k, item := range final {
		if item.seq != slots[k] {
			plan.Updates = append(plan.Updates, ResequenceUpdate{ID: item.id, FromSequence: item.seq, ToSequence: slots[k]})
		}
	}

	return plan, nil
}

// finalOrder rebuilds the ordering: for each date in ascending order, first
// the undated blocks anchored to that date (by original block position, items
// keeping their internal order), then the dated songs sharing it (in original
// relative order). Blocks whose anchor matched no dated group come last, in
// original order.
func finalOrder(items []seqItem) ([]seqItem, error) {
	var blocks []undatedBlock
	var pending *undatedBlock
	dated := make(map[string][]seqItem)
	var datedKeys []string

	for pos, item := range items {
		if item.dateKey == "" {
			if pending == nil {
				pending = &undatedBlock{startPos: pos}
			}
			pending.items = append(pending.items, item)
			continue
		}

		if pending != nil {
			pending.nextKey = item.dateKey
			blocks = append(blocks, *pending)
			pending = nil
		}
		if _, seen := dated[item.dateKey]; !seen {
			datedKeys = append(datedKeys, item.dateKey)
		}
		dated[item.dateKey] = append(dated[item.dateKey], item)
	}
	if pending != nil {
		pending.nextKey = farFutureKey
		blocks = append(blocks, *pending)
	}

	// ISO strings sort chronologically; the sentinel sorts after all of them.
	sort.Strings(datedKeys)

	emitted := make([]bool, len(blocks))
	final := make([]seqItem, 0, len(items))

	for _, key := range datedKeys {
		for bi := range blocks {
			if !emitted[bi] && blocks[bi].nextKey == key {
				final = append(final, blocks[bi].items...)
				emitted[bi] = true
			}
		}
		final = append(final, dated[key]...)
	}

	for bi := range blocks {
		if !emitted[bi] {
			final = append(final, blocks[bi].items...)
		}
	}

	if len(final) != len(items) {
		return nil, fmt.Errorf("%w: grouped %d songs but started with %d", shared.ErrResequenceAborted, len(final), len(items))
	}

	return final, nil
}

// findInversions scans consecutive dated songs in the current order and
// reports pairs whose dates sort against their positions.
func findInversions(items []seqItem) []Inversion {
	var inversions []Inversion
	lastDated := -1

	for i, item := range items {
		if item.dateKey == "" {
			continue
		}
		if lastDated >= 0 && items[lastDated].dateKey > item.dateKey {
			inversions = append(inversions, Inversion{
				EarlierID:   items[lastDated].id,
				EarlierDate: items[lastDated].dateKey,
				LaterID:     item.id,
				LaterDate:   item.dateKey,
			})
		}
		lastDated = i
	}

	return inversions
}

// applyUpdates performs the two-phase write. The offset is the current global
// maximum sequence, so every temporary slot lands above any in-use value.
func (r *Resequencer) applyUpdates(updates []ResequenceUpdate) (*ResequenceReport, error) {
	report := &ResequenceReport{}
	if len(updates) == 0 {
		return report, nil
	}

	offset, err := r.songs.MaxSequence()
	if err != nil {
		return nil, fmt.Errorf("%w: offset read failed: %v", shared.ErrResequenceAborted, err)
	}

	parked := make([]ResequenceUpdate, 0, len(updates))
	for _, update := range updates {
		if err := r.songs.UpdateSequence(update.ID, update.ToSequence+offset); err != nil {
			r.logger.Error("temporary slot write failed", "song", update.ID, "target", update.ToSequence, "err", err)
			report.Failed++
			continue
		}
		parked = append(parked, update)
	}

	for _, update := range parked {
		if err := r.songs.UpdateSequence(update.ID, update.ToSequence); err != nil {
			r.logger.Error("final slot write failed", "song", update.ID, "target", update.ToSequence, "err", err)
			report.Failed++
			continue
		}
		report.Applied++
	}

	return report, nil
}
