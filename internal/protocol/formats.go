package protocol

import (
	_ "embed"
	"fmt"
	"slices"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed formats.cue
var formatsSource []byte

// LedgerEntryType is the 16-bit type code of a ledger entry.
type LedgerEntryType uint16

const (
	LtAccountRoot   LedgerEntryType = 0x61
	LtDirectoryNode LedgerEntryType = 0x64
	LtTicket        LedgerEntryType = 0x54
	LtCheck         LedgerEntryType = 0x43
	LtAmendments    LedgerEntryType = 0x66
	LtFeeSettings   LedgerEntryType = 0x73
	LtNegativeUNL   LedgerEntryType = 0x4e
	LtAMM           LedgerEntryType = 0x79
	LtLedgerHashes  LedgerEntryType = 0x68
)

// String returns the format name, or the hex code for unknown types.
func (t LedgerEntryType) String() string {
	if f, ok := DefaultFormats().Entry(t); ok {
		return f.Name
	}
	return fmt.Sprintf("LedgerEntryType(0x%04x)", uint16(t))
}

// TxType is the 16-bit type code of a transaction.
type TxType uint16

const (
	TtPayment         TxType = 0
	TtAccountSet      TxType = 3
	TtSetRegularKey   TxType = 5
	TtTicketCreate    TxType = 10
	TtCheckCreate     TxType = 16
	TtCheckCancel     TxType = 18
	TtEnableAmendment TxType = 100
	TtSetFee          TxType = 101
)

func (t TxType) String() string {
	if f, ok := DefaultFormats().Tx(t); ok {
		return f.Name
	}
	return fmt.Sprintf("TxType(%d)", uint16(t))
}

// Threading says when revisions of an entry type record PreviousTxnID.
type Threading string

const (
	ThreadAlways           Threading = "always"
	ThreadFixPreviousTxnID Threading = "fixPreviousTxnID"
	ThreadNone             Threading = "none"
)

// fixPreviousTxnIDTypes are the entry types that only thread once
// fixPreviousTxnID is enabled. formats.cue must agree with this set.
var fixPreviousTxnIDTypes = []LedgerEntryType{
	LtDirectoryNode,
	LtAmendments,
	LtFeeSettings,
	LtNegativeUNL,
	LtAMM,
}

// EntryFormat describes one ledger entry type.
type EntryFormat struct {
	Name      string
	Type      LedgerEntryType
	Threading Threading
	Template  *Template
}

// TxFormat describes one transaction type.
type TxFormat struct {
	Name     string
	Type     TxType
	Pseudo   bool
	Template *Template
}

// Formats is the read-only registry of entry and transaction formats.
type Formats struct {
	entries       map[LedgerEntryType]*EntryFormat
	entriesByName map[string]*EntryFormat
	txs           map[TxType]*TxFormat
	txsByName     map[string]*TxFormat
}

// FormatError reports a problem in a formats source.
type FormatError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *FormatError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

var (
	defaultFormats     *Formats
	defaultFormatsOnce sync.Once
)

// DefaultFormats returns the registry compiled from the embedded formats.cue.
// It is built once; a broken embedded source is a programming error and panics.
func DefaultFormats() *Formats {
	defaultFormatsOnce.Do(func() {
		f, err := LoadFormats(formatsSource)
		if err != nil {
			panic(fmt.Sprintf("protocol: embedded formats: %v", err))
		}
		defaultFormats = f
	})
	return defaultFormats
}

// LoadFormats compiles a CUE formats source into a registry.
func LoadFormats(src []byte) (*Formats, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename("formats.cue"))
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	entryCommon, err := parseElements(root.LookupPath(cue.ParsePath("common.ledger_entry")))
	if err != nil {
		return nil, err
	}
	txCommon, err := parseElements(root.LookupPath(cue.ParsePath("common.transaction")))
	if err != nil {
		return nil, err
	}

	f := &Formats{
		entries:       make(map[LedgerEntryType]*EntryFormat),
		entriesByName: make(map[string]*EntryFormat),
		txs:           make(map[TxType]*TxFormat),
		txsByName:     make(map[string]*TxFormat),
	}
	if err := f.loadEntries(root.LookupPath(cue.ParsePath("ledger_entries")), entryCommon); err != nil {
		return nil, err
	}
	if err := f.loadTransactions(root.LookupPath(cue.ParsePath("transactions")), txCommon); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Formats) loadEntries(v cue.Value, common []TemplateElement) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()

		code, err := parseCode(val)
		if err != nil {
			return err
		}
		threading, err := stringDefault(val.LookupPath(cue.ParsePath("threading")))
		if err != nil {
			return err
		}
		elems, err := parseElements(val.LookupPath(cue.ParsePath("fields")))
		if err != nil {
			return err
		}
		tmpl, err := NewTemplate(name, append(slices.Clone(common), elems...)...)
		if err != nil {
			return &FormatError{Path: "ledger_entries." + name, Message: err.Error(), Pos: val.Pos()}
		}

		ef := &EntryFormat{Name: name, Type: LedgerEntryType(code), Threading: Threading(threading), Template: tmpl}
		if err := checkThreading(ef); err != nil {
			return &FormatError{Path: "ledger_entries." + name, Message: err.Error(), Pos: val.Pos()}
		}
		if _, dup := f.entries[ef.Type]; dup {
			return &FormatError{Path: "ledger_entries." + name, Message: fmt.Sprintf("duplicate code 0x%04x", code), Pos: val.Pos()}
		}
		f.entries[ef.Type] = ef
		f.entriesByName[name] = ef
	}
	return nil
}

func (f *Formats) loadTransactions(v cue.Value, common []TemplateElement) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		val := iter.Value()

		code, err := parseCode(val)
		if err != nil {
			return err
		}
		pseudo := false
		if pv := val.LookupPath(cue.ParsePath("pseudo")); pv.Exists() {
			d, _ := pv.Default()
			if pseudo, err = d.Bool(); err != nil {
				return formatCUEError(err)
			}
		}
		elems, err := parseElements(val.LookupPath(cue.ParsePath("fields")))
		if err != nil {
			return err
		}
		tmpl, err := NewTemplate(name, append(slices.Clone(common), elems...)...)
		if err != nil {
			return &FormatError{Path: "transactions." + name, Message: err.Error(), Pos: val.Pos()}
		}
		tf := &TxFormat{Name: name, Type: TxType(code), Pseudo: pseudo, Template: tmpl}
		if _, dup := f.txs[tf.Type]; dup {
			return &FormatError{Path: "transactions." + name, Message: fmt.Sprintf("duplicate code %d", code), Pos: val.Pos()}
		}
		f.txs[tf.Type] = tf
		f.txsByName[name] = tf
	}
	return nil
}

// checkThreading verifies the declared threading against the template and
// the fixPreviousTxnID exclusion set.
func checkThreading(ef *EntryFormat) error {
	hasPrev := ef.Template.Index(FieldPreviousTxnID) >= 0
	excluded := slices.Contains(fixPreviousTxnIDTypes, ef.Type)
	var want Threading
	switch {
	case !hasPrev:
		want = ThreadNone
	case excluded:
		want = ThreadFixPreviousTxnID
	default:
		want = ThreadAlways
	}
	if ef.Threading != want {
		return fmt.Errorf("threading is %q, template and exclusion set imply %q", ef.Threading, want)
	}
	return nil
}

func parseCode(v cue.Value) (uint16, error) {
	cv := v.LookupPath(cue.ParsePath("code"))
	n, err := cv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return uint16(n), nil
}

func parseElements(v cue.Value) ([]TemplateElement, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []TemplateElement
	for list.Next() {
		el := list.Value()
		name, err := el.LookupPath(cue.ParsePath("field")).String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		field, ok := LookupField(name)
		if !ok {
			return nil, &FormatError{Path: v.Path().String(), Message: fmt.Sprintf("unknown field %q", name), Pos: el.Pos()}
		}
		styleName, err := stringDefault(el.LookupPath(cue.ParsePath("style")))
		if err != nil {
			return nil, err
		}
		style, err := ParseStyle(styleName)
		if err != nil {
			return nil, &FormatError{Path: v.Path().String(), Message: err.Error(), Pos: el.Pos()}
		}
		out = append(out, TemplateElement{Field: field, Style: style})
	}
	return out, nil
}

func stringDefault(v cue.Value) (string, error) {
	d, _ := v.Default()
	s, err := d.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &FormatError{Path: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// Entry returns the format for an entry type.
func (f *Formats) Entry(t LedgerEntryType) (*EntryFormat, bool) {
	ef, ok := f.entries[t]
	return ef, ok
}

// EntryByName returns the format for an entry type name.
func (f *Formats) EntryByName(name string) (*EntryFormat, bool) {
	ef, ok := f.entriesByName[name]
	return ef, ok
}

// Tx returns the format for a transaction type.
func (f *Formats) Tx(t TxType) (*TxFormat, bool) {
	tf, ok := f.txs[t]
	return tf, ok
}

// TxByName returns the format for a transaction type name.
func (f *Formats) TxByName(name string) (*TxFormat, bool) {
	tf, ok := f.txsByName[name]
	return tf, ok
}

// Entries returns every entry format ordered by type code.
func (f *Formats) Entries() []*EntryFormat {
	out := make([]*EntryFormat, 0, len(f.entries))
	for _, ef := range f.entries {
		out = append(out, ef)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Transactions returns every transaction format ordered by type code.
func (f *Formats) Transactions() []*TxFormat {
	out := make([]*TxFormat, 0, len(f.txs))
	for _, tf := range f.txs {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
