// Package autosave копит правки вопросов в локальном буфере и сохраняет их
// с отложенным запуском, не более одного запроса на вопрос одновременно.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/IT-Nick/testpoint/internal/domain/model"
	"github.com/IT-Nick/testpoint/internal/infra/timer"
)

// DefaultDebounce пауза после последней правки до сохранения
const DefaultDebounce = 1500 * time.Millisecond

// Status состояние сохранения вопроса
type Status string

const (
	StatusIdle   Status = "idle"
	StatusDirty  Status = "dirty"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Field редактируемое поле вопроса
type Field string

const (
	FieldText    Field = "text"
	FieldOptions Field = "options"
	FieldCorrect Field = "correct_option_index"
)

var (
	ErrNotTracked     = errors.New("question is not tracked")
	ErrAlreadyTracked = errors.New("question is already tracked with unsaved changes")
	ErrClosed         = errors.New("autosave is closed")
	ErrOptionIndex    = errors.New("option index out of range")
)

// Saver сохраняет буфер вопроса
type Saver interface {
	Save(ctx context.Context, testID, questionID string, draft model.QuestionDraft) (*model.Question, error)
}

// SaverFunc адаптер функции к Saver
type SaverFunc func(ctx context.Context, testID, questionID string, draft model.QuestionDraft) (*model.Question, error)

func (f SaverFunc) Save(ctx context.Context, testID, questionID string, draft model.QuestionDraft) (*model.Question, error) {
	return f(ctx, testID, questionID, draft)
}

// Snapshot состояние вопроса в момент вызова
type Snapshot struct {
	TestID     string              `json:"test_id"`
	QuestionID string              `json:"question_id"`
	Status     Status              `json:"status"`
	Draft      model.QuestionDraft `json:"draft"`
	Saved      model.QuestionDraft `json:"saved"`
	Dirty      []Field             `json:"dirty_fields"`
	Revision   uint64              `json:"revision"`
	SavedRev   uint64              `json:"saved_revision"`
	InFlight   bool                `json:"in_flight"`
	FollowUp   bool                `json:"follow_up"`
	Err        error               `json:"-"`
	Error      string              `json:"error,omitempty"`
}

// Options настройки Pipeline
type Options struct {
	Debounce  time.Duration
	Scheduler timer.Scheduler
	Logger    *slog.Logger
}

type entry struct {
	testID string
	id     string

	buffer   model.QuestionDraft
	saved    model.QuestionDraft
	rev      uint64
	savedRev uint64
	fieldRev map[Field]uint64

	status   Status
	err      error
	timer    timer.Timer
	gen      uint64
	inFlight bool
	followUp bool
}

// Pipeline автосохранение набора вопросов
type Pipeline struct {
	saver    Saver
	sched    timer.Scheduler
	debounce time.Duration
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	entries   map[string]*entry
	listeners []func(Snapshot)
	changed   chan struct{}
	closed    bool
}

// New создает Pipeline, сохраняющий через saver
func New(saver Saver, opts Options) *Pipeline {
	p := &Pipeline{
		saver:    saver,
		sched:    opts.Scheduler,
		debounce: opts.Debounce,
		log:      opts.Logger,
		entries:  make(map[string]*entry),
		changed:  make(chan struct{}),
	}
	if p.sched == nil {
		p.sched = timer.Real{}
	}
	if p.debounce <= 0 {
		p.debounce = DefaultDebounce
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	return p
}

// OnChange подписывает fn на изменения состояния вопросов
func (p *Pipeline) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Track начинает отслеживать сохраненный вопрос
func (p *Pipeline) Track(q model.Question) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if e, ok := p.entries[q.ID]; ok {
		if e.rev != e.savedRev || e.inFlight {
			p.mu.Unlock()
			return ErrAlreadyTracked
		}
		if e.timer != nil {
			e.timer.Stop()
		}
	}

	e := &entry{
		testID:   q.TestID,
		id:       q.ID,
		buffer:   q.Draft(),
		saved:    q.Draft(),
		fieldRev: make(map[Field]uint64),
		status:   StatusIdle,
	}
	p.entries[q.ID] = e
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
	return nil
}

// Untrack прекращает отслеживание. Несохраненные правки теряются.
func (p *Pipeline) Untrack(id string) {
	p.mu.Lock()
	e, ok := p.entries[id]
	if ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(p.entries, id)
		p.signal()
	}
	p.mu.Unlock()
}

// Pending сообщает, есть ли у вопроса несохраненные правки или сохранение в полете
func (p *Pipeline) Pending(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return false
	}
	return e.pending()
}

// Refresh подтягивает версию вопроса, сохраненную в обход конвейера.
// Поля с несохраненными правками в буфере остаются как есть.
func (p *Pipeline) Refresh(q model.Question) error {
	p.mu.Lock()
	e, ok := p.entries[q.ID]
	if !ok {
		p.mu.Unlock()
		return ErrNotTracked
	}

	fresh := q.Draft()
	if !e.pending() {
		e.buffer = fresh.Clone()
	} else {
		dirty := e.dirty()
		if !slices.Contains(dirty, FieldText) {
			e.buffer.Text = fresh.Text
		}
		if !slices.Contains(dirty, FieldOptions) {
			e.buffer.Options = slices.Clone(fresh.Options)
		}
		if !slices.Contains(dirty, FieldCorrect) {
			e.buffer.CorrectOptionIndex = fresh.CorrectOptionIndex
		}
	}
	e.saved = fresh
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
	return nil
}

// Edit применяет fn к буферу вопроса и перезапускает отложенное сохранение
func (p *Pipeline) Edit(id string, fn func(d *model.QuestionDraft) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	e, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		return ErrNotTracked
	}

	next := e.buffer.Clone()
	if err := fn(&next); err != nil {
		p.mu.Unlock()
		return err
	}
	changed := diff(e.buffer, next)
	if len(changed) == 0 {
		p.mu.Unlock()
		return nil
	}

	e.rev++
	for _, f := range changed {
		e.fieldRev[f] = e.rev
	}
	e.buffer = next
	e.status = StatusDirty
	p.schedule(e)
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
	return nil
}

// SetText меняет текст вопроса
func (p *Pipeline) SetText(id, text string) error {
	return p.Edit(id, func(d *model.QuestionDraft) error {
		d.Text = text
		return nil
	})
}

// SetOptionText меняет текст варианта i
func (p *Pipeline) SetOptionText(id string, i int, text string) error {
	return p.Edit(id, func(d *model.QuestionDraft) error {
		if i < 0 || i >= len(d.Options) {
			return fmt.Errorf("%w: %d", ErrOptionIndex, i)
		}
		d.Options[i].Text = text
		return nil
	})
}

// AddOption добавляет вариант в конец списка
func (p *Pipeline) AddOption(id, text string) error {
	return p.Edit(id, func(d *model.QuestionDraft) error {
		d.Options = append(d.Options, model.Option{Text: text})
		return nil
	})
}

// RemoveOption удаляет вариант i и сдвигает номер правильного варианта
func (p *Pipeline) RemoveOption(id string, i int) error {
	return p.Edit(id, func(d *model.QuestionDraft) error {
		if i < 0 || i >= len(d.Options) {
			return fmt.Errorf("%w: %d", ErrOptionIndex, i)
		}
		d.Options = slices.Delete(d.Options, i, i+1)
		switch {
		case d.CorrectOptionIndex > i:
			d.CorrectOptionIndex--
		case d.CorrectOptionIndex == i:
			d.CorrectOptionIndex = 0
		}
		return nil
	})
}

// SetCorrectOption отмечает вариант i правильным
func (p *Pipeline) SetCorrectOption(id string, i int) error {
	return p.Edit(id, func(d *model.QuestionDraft) error {
		if i < 0 || i >= len(d.Options) {
			return fmt.Errorf("%w: %d", ErrOptionIndex, i)
		}
		d.CorrectOptionIndex = i
		return nil
	})
}

// Retry повторно ставит буфер в очередь сохранения
func (p *Pipeline) Retry(id string) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	e, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		return ErrNotTracked
	}
	if e.status != StatusError && e.rev == e.savedRev {
		p.mu.Unlock()
		return nil
	}

	if !e.inFlight {
		e.status = StatusDirty
	}
	p.schedule(e)
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
	return nil
}

// Revert возвращает буфер к последней сохраненной версии.
// Возвращает состояние до отката.
func (p *Pipeline) Revert(id string) (Snapshot, error) {
	p.mu.Lock()
	e, ok := p.entries[id]
	if !ok {
		p.mu.Unlock()
		return Snapshot{}, ErrNotTracked
	}
	before := e.snapshot()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.buffer = e.saved.Clone()
	e.rev++
	e.err = nil
	if e.inFlight {
		// Отправленная версия перезапишет сохраненную, поэтому откат тоже надо сохранить
		for _, f := range []Field{FieldText, FieldOptions, FieldCorrect} {
			e.fieldRev[f] = e.rev
		}
		e.status = StatusDirty
		e.followUp = true
	} else {
		e.savedRev = e.rev
		clear(e.fieldRev)
		e.status = StatusSaved
		if before.SavedRev == 0 {
			e.status = StatusIdle
		}
	}
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
	return before, nil
}

// Status текущее состояние вопроса; для неотслеживаемых idle
func (p *Pipeline) Status(id string) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[id]; ok {
		return e.status
	}
	return StatusIdle
}

// Snapshot копия состояния вопроса
func (p *Pipeline) Snapshot(id string) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[id]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(), true
}

// Aggregate общее состояние: saving > dirty > error > saved
func (p *Pipeline) Aggregate() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	var saving, dirty, failed, saved bool
	for _, e := range p.entries {
		switch e.status {
		case StatusSaving:
			saving = true
		case StatusDirty:
			dirty = true
		case StatusError:
			failed = true
		case StatusSaved:
			saved = true
		}
	}

	switch {
	case saving:
		return StatusSaving
	case dirty:
		return StatusDirty
	case failed:
		return StatusError
	case saved:
		return StatusSaved
	default:
		return StatusIdle
	}
}

// Flush немедленно отправляет все несохраненные буферы и ждет завершения.
// Возвращает ошибки вопросов, оставшихся в состоянии error.
func (p *Pipeline) Flush(ctx context.Context) error {
	var snaps []Snapshot

	p.mu.Lock()
	for _, e := range p.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		if e.rev == e.savedRev && e.status != StatusError {
			continue
		}
		if e.inFlight {
			e.followUp = true
			continue
		}
		p.start(e)
		snaps = append(snaps, e.snapshot())
	}
	p.mu.Unlock()

	for _, s := range snaps {
		p.emit(s)
	}

	if err := p.wait(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var failed []error
	for _, id := range ids {
		if e := p.entries[id]; e.status == StatusError && e.err != nil {
			failed = append(failed, fmt.Errorf("question %s: %w", id, e.err))
		}
	}
	return errors.Join(failed...)
}

// Close отменяет отложенные сохранения и ждет завершения текущих
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, e := range p.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.followUp = false
	}
	p.mu.Unlock()

	_ = p.wait(context.Background())
	p.cancel()
}

// wait ждет, пока не останется сохранений в полете
func (p *Pipeline) wait(ctx context.Context) error {
	for {
		p.mu.Lock()
		busy := false
		for _, e := range p.entries {
			if e.inFlight || e.followUp {
				busy = true
				break
			}
		}
		ch := p.changed
		p.mu.Unlock()

		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// schedule перезапускает таймер отложенного сохранения. Вызывается под p.mu.
func (p *Pipeline) schedule(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = p.sched.AfterFunc(p.debounce, func() { p.fire(e, gen) })
}

func (p *Pipeline) fire(e *entry, gen uint64) {
	p.mu.Lock()
	if p.closed || p.entries[e.id] != e || e.gen != gen {
		p.mu.Unlock()
		return
	}
	e.timer = nil
	if e.inFlight {
		e.followUp = true
		snap := e.snapshot()
		p.mu.Unlock()
		p.emit(snap)
		return
	}
	p.start(e)
	snap := e.snapshot()
	p.mu.Unlock()

	p.emit(snap)
}

// start отправляет текущий буфер. Вызывается под p.mu.
func (p *Pipeline) start(e *entry) {
	e.inFlight = true
	e.followUp = false
	e.status = StatusSaving

	draft := e.buffer.Clone()
	rev := e.rev
	go p.save(e, draft, rev)
}

func (p *Pipeline) save(e *entry, draft model.QuestionDraft, rev uint64) {
	q, err := p.saver.Save(p.ctx, e.testID, e.id, draft)

	p.mu.Lock()
	e.inFlight = false
	if p.entries[e.id] != e {
		p.signal()
		p.mu.Unlock()
		return
	}
	// Вопрос удален в обход конвейера, сохранять больше нечего
	if errs.Is(err, errs.KindNotFound) {
		p.log.Info("autosave dropped deleted question", "test_id", e.testID, "question_id", e.id)
		if e.timer != nil {
			e.timer.Stop()
		}
		e.followUp = false
		delete(p.entries, e.id)
		p.signal()
		p.mu.Unlock()
		return
	}

	newer := e.rev != rev
	if err != nil {
		p.log.Warn("autosave failed", "test_id", e.testID, "question_id", e.id, "revision", rev, "error", err)
		e.err = err
		if newer {
			e.status = StatusDirty
		} else {
			e.status = StatusError
		}
	} else {
		e.err = nil
		e.saved = draft
		if q != nil {
			e.saved = q.Draft()
			adoptOptionIDs(&e.buffer, q.Options)
		}
		e.savedRev = rev
		if newer {
			e.status = StatusDirty
		} else {
			e.status = StatusSaved
		}
	}

	if e.followUp && !p.closed {
		p.start(e)
	}
	snap := e.snapshot()
	p.signal()
	p.mu.Unlock()

	p.emit(snap)
}

// signal будит ожидающих wait. Вызывается под p.mu.
func (p *Pipeline) signal() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Pipeline) emit(s Snapshot) {
	p.mu.Lock()
	listeners := slices.Clone(p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (e *entry) pending() bool {
	return e.rev != e.savedRev || e.inFlight || e.followUp || e.timer != nil
}

func (e *entry) dirty() []Field {
	var fields []Field
	for _, f := range []Field{FieldText, FieldOptions, FieldCorrect} {
		if e.fieldRev[f] > e.savedRev {
			fields = append(fields, f)
		}
	}
	return fields
}

func (e *entry) snapshot() Snapshot {
	s := Snapshot{
		TestID:     e.testID,
		QuestionID: e.id,
		Status:     e.status,
		Draft:      e.buffer.Clone(),
		Saved:      e.saved.Clone(),
		Revision:   e.rev,
		SavedRev:   e.savedRev,
		InFlight:   e.inFlight,
		FollowUp:   e.followUp,
		Err:        e.err,
	}
	if e.err != nil {
		s.Error = e.err.Error()
	}
	s.Dirty = e.dirty()
	return s
}

// diff возвращает поля, которые отличаются у a и b
func diff(a, b model.QuestionDraft) []Field {
	var fields []Field
	if a.Text != b.Text {
		fields = append(fields, FieldText)
	}
	if !slices.Equal(a.Options, b.Options) {
		fields = append(fields, FieldOptions)
	}
	if a.CorrectOptionIndex != b.CorrectOptionIndex {
		fields = append(fields, FieldCorrect)
	}
	return fields
}

// adoptOptionIDs переносит выданные хранилищем идентификаторы в новые варианты буфера
func adoptOptionIDs(d *model.QuestionDraft, saved []model.Option) {
	for i := range d.Options {
		if d.Options[i].ID == "" && i < len(saved) && saved[i].Text == d.Options[i].Text {
			d.Options[i].ID = saved[i].ID
		}
	}
}

// MatchOptionIDs проставляет вариантам без идентификатора id из prev:
// сначала по совпадению текста, затем по позиции
func MatchOptionIDs(d *model.QuestionDraft, prev []model.Option) {
	used := make(map[string]bool, len(prev))
	for _, o := range d.Options {
		if o.ID != "" {
			used[o.ID] = true
		}
	}
	for i := range d.Options {
		if d.Options[i].ID != "" {
			continue
		}
		for _, o := range prev {
			if o.ID != "" && !used[o.ID] && o.Text == d.Options[i].Text {
				d.Options[i].ID = o.ID
				used[o.ID] = true
				break
			}
		}
	}
	for i := range d.Options {
		if d.Options[i].ID != "" || i >= len(prev) {
			continue
		}
		if id := prev[i].ID; id != "" && !used[id] {
			d.Options[i].ID = id
			used[id] = true
		}
	}
}
