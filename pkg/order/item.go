package order

import (
	"Go-Order-Intake/domain"
	"Go-Order-Intake/pkg/compress"
	"Go-Order-Intake/pkg/record"
	"strings"
)

const (
	StatusEmpty          = "empty"
	StatusAttached       = "image-attached"
	StatusAnalyzing      = "analyzing"
	StatusAnalyzed       = "analyzed"
	StatusAnalysisFailed = "analysis-failed"

	StatusManualDraft   = "manual-draft"
	StatusManualParsing = "manual-parsing"
	StatusManualApplied = "manual-applied"
)

type (
	// ImageState is one of Empty, Attached, Analyzing, Analyzed or
	// AnalysisFailed.
	ImageState interface {
		Status() string
		isImageState()
	}

	Empty struct{}

	Attached struct {
		File compress.File
	}

	Analyzing struct {
		File       compress.File
		Generation uint64
	}

	Analyzed struct {
		File compress.File
		Auto record.Record
	}

	AnalysisFailed struct {
		File   compress.File
		Reason string
	}
)

func (Empty) Status() string          { return StatusEmpty }
func (Attached) Status() string       { return StatusAttached }
func (Analyzing) Status() string      { return StatusAnalyzing }
func (Analyzed) Status() string       { return StatusAnalyzed }
func (AnalysisFailed) Status() string { return StatusAnalysisFailed }

func (Empty) isImageState()          {}
func (Attached) isImageState()       {}
func (Analyzing) isImageState()      {}
func (Analyzed) isImageState()       {}
func (AnalysisFailed) isImageState() {}

type (
	// ManualState is one of Draft, Parsing or Applied. Draft and Parsing
	// carry the last applied record, which still counts on submission.
	ManualState interface {
		Status() string
		isManualState()
	}

	Draft struct {
		Text   string
		Record record.Record
	}

	Parsing struct {
		Text       string
		Record     record.Record
		Generation uint64
	}

	Applied struct {
		Record record.Record
	}
)

func (Draft) Status() string   { return StatusManualDraft }
func (Parsing) Status() string { return StatusManualParsing }
func (Applied) Status() string { return StatusManualApplied }

func (Draft) isManualState()   {}
func (Parsing) isManualState() {}
func (Applied) isManualState() {}

// Item is one order card. Transitions return a new Item and leave the
// receiver untouched.
type Item struct {
	ID     int64
	Image  ImageState
	Manual ManualState
}

func NewItem(id int64) Item {
	return Item{ID: id, Image: Empty{}, Manual: Draft{}}
}

// File returns the attached image, if any.
func (it Item) File() (compress.File, bool) {
	switch s := it.Image.(type) {
	case Attached:
		return s.File, true
	case Analyzing:
		return s.File, true
	case Analyzed:
		return s.File, true
	case AnalysisFailed:
		return s.File, true
	}
	return compress.File{}, false
}

// Auto returns the analysis result; nil unless Analyzed.
func (it Item) Auto() record.Record {
	if s, ok := it.Image.(Analyzed); ok {
		return s.Auto
	}
	return nil
}

// ManualRecord returns the last applied manual record.
func (it Item) ManualRecord() record.Record {
	switch s := it.Manual.(type) {
	case Draft:
		return s.Record
	case Parsing:
		return s.Record
	case Applied:
		return s.Record
	}
	return nil
}

// ManualText returns the editable text; empty once applied.
func (it Item) ManualText() string {
	switch s := it.Manual.(type) {
	case Draft:
		return s.Text
	case Parsing:
		return s.Text
	}
	return ""
}

func (it Item) Merged() record.Record {
	return record.Merge(it.Auto(), it.ManualRecord())
}

func (it Item) Row() []string {
	return record.Serialize(it.Merged())
}

// Pristine reports a card nobody has touched yet.
func (it Item) Pristine() bool {
	if _, ok := it.Image.(Empty); !ok {
		return false
	}
	d, ok := it.Manual.(Draft)
	return ok && strings.TrimSpace(d.Text) == "" && len(d.Record) == 0
}

// Attach puts a new image on the card from any state. Analysis starts
// separately so bulk uploads can stagger it.
func (it Item) Attach(f compress.File) Item {
	it.Image = Attached{File: f}
	return it
}

func (it Item) StartAnalysis(gen uint64) (Item, error) {
	s, ok := it.Image.(Attached)
	if !ok {
		return it, domain.ErrInvalidTransition
	}
	it.Image = Analyzing{File: s.File, Generation: gen}
	return it, nil
}

// Retry re-analyzes the image already on a failed card.
func (it Item) Retry(gen uint64) (Item, error) {
	s, ok := it.Image.(AnalysisFailed)
	if !ok {
		return it, domain.ErrInvalidTransition
	}
	it.Image = Analyzing{File: s.File, Generation: gen}
	return it, nil
}

func (it Item) CompleteAnalysis(gen uint64, auto record.Record) (Item, error) {
	s, ok := it.Image.(Analyzing)
	if !ok || s.Generation != gen {
		return it, domain.ErrStaleResult
	}
	it.Image = Analyzed{File: s.File, Auto: auto.Clone()}
	return it, nil
}

func (it Item) FailAnalysis(gen uint64, reason string) (Item, error) {
	s, ok := it.Image.(Analyzing)
	if !ok || s.Generation != gen {
		return it, domain.ErrStaleResult
	}
	it.Image = AnalysisFailed{File: s.File, Reason: reason}
	return it, nil
}

// SetAutoField corrects one analyzed value, e.g. a misread order number.
func (it Item) SetAutoField(key, value string) (Item, error) {
	s, ok := it.Image.(Analyzed)
	if !ok {
		return it, domain.ErrInvalidTransition
	}
	it.Image = Analyzed{File: s.File, Auto: s.Auto.With(key, value)}
	return it, nil
}

func (it Item) SetManualText(text string) (Item, error) {
	d, ok := it.Manual.(Draft)
	if !ok {
		return it, domain.ErrInvalidTransition
	}
	it.Manual = Draft{Text: text, Record: d.Record}
	return it, nil
}

func (it Item) applicableDraft() (Draft, error) {
	if _, ok := it.Image.(Analyzed); !ok {
		return Draft{}, domain.ErrInvalidTransition
	}
	d, ok := it.Manual.(Draft)
	if !ok {
		return Draft{}, domain.ErrInvalidTransition
	}
	if strings.TrimSpace(d.Text) == "" {
		return Draft{}, domain.ErrEmptyManualText
	}
	return d, nil
}

// ApplyLocal parses the draft text in place of the AI collaborator.
func (it Item) ApplyLocal() (Item, error) {
	d, err := it.applicableDraft()
	if err != nil {
		return it, err
	}
	it.Manual = Applied{Record: record.Parse(d.Text)}
	return it, nil
}

func (it Item) BeginParse(gen uint64) (Item, error) {
	d, err := it.applicableDraft()
	if err != nil {
		return it, err
	}
	it.Manual = Parsing{Text: d.Text, Record: d.Record, Generation: gen}
	return it, nil
}

func (it Item) FinishParse(gen uint64, rec record.Record) (Item, error) {
	p, ok := it.Manual.(Parsing)
	if !ok || p.Generation != gen {
		return it, domain.ErrStaleResult
	}
	it.Manual = Applied{Record: rec.Clone()}
	return it, nil
}

// AbortParse returns to the draft the parse started from.
func (it Item) AbortParse(gen uint64) (Item, error) {
	p, ok := it.Manual.(Parsing)
	if !ok || p.Generation != gen {
		return it, domain.ErrStaleResult
	}
	it.Manual = Draft{Text: p.Text, Record: p.Record}
	return it, nil
}

// Edit reopens an applied entry, seeding the text from the applied record.
func (it Item) Edit() (Item, error) {
	a, ok := it.Manual.(Applied)
	if !ok {
		return it, domain.ErrInvalidTransition
	}
	it.Manual = Draft{Text: record.Format(a.Record), Record: a.Record}
	return it, nil
}

// CopyOf starts a new card carrying over src's manual entry; account and
// buyer details usually repeat across one buyer's orders.
func CopyOf(id int64, src Item) Item {
	it := NewItem(id)
	switch s := src.Manual.(type) {
	case Applied:
		it.Manual = Applied{Record: s.Record.Clone()}
	case Draft:
		it.Manual = Draft{Text: s.Text, Record: s.Record.Clone()}
	case Parsing:
		it.Manual = Draft{Text: s.Text, Record: s.Record.Clone()}
	}
	return it
}
