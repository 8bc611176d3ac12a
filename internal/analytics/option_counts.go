package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OptionCounts is a tally of multiple-choice selections keyed by option. It
// keeps the declaration order of the options, including in its JSON form.
type OptionCounts struct {
	keys   []string
	counts map[string]int
}

func newOptionCounts(options []string) *OptionCounts {
	oc := &OptionCounts{keys: make([]string, 0, len(options)), counts: make(map[string]int, len(options))}
	for _, o := range options {
		if _, dup := oc.counts[o]; dup {
			continue
		}
		oc.keys = append(oc.keys, o)
		oc.counts[o] = 0
	}
	return oc
}

// inc adds one selection of option and reports whether it is declared.
func (o *OptionCounts) inc(option string) bool {
	if _, ok := o.counts[option]; !ok {
		return false
	}
	o.counts[option]++
	return true
}

// Keys returns the options in declaration order.
func (o *OptionCounts) Keys() []string { return append([]string(nil), o.keys...) }

// Get returns the count for option.
func (o *OptionCounts) Get(option string) (int, bool) {
	n, ok := o.counts[option]
	return n, ok
}

// Len returns the number of declared options.
func (o *OptionCounts) Len() int { return len(o.keys) }

// Total returns the sum of all counts.
func (o *OptionCounts) Total() int {
	t := 0
	for _, n := range o.counts {
		t += n
	}
	return t
}

// Top returns the most selected option; ties go to the earliest declared.
func (o *OptionCounts) Top() (string, int, bool) {
	best, bestN, found := "", -1, false
	for _, k := range o.keys {
		if n := o.counts[k]; n > bestN {
			best, bestN, found = k, n, true
		}
	}
	return best, bestN, found
}

// MarshalJSON writes the tally as an object in declaration order.
func (o OptionCounts) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(o.counts[k]))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object, keeping key order.
func (o *OptionCounts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("optionCounts: expected object, got %v", tok)
	}
	out := OptionCounts{counts: map[string]int{}}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return err
		}
		if _, dup := out.counts[key]; !dup {
			out.keys = append(out.keys, key)
		}
		out.counts[key] = n
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}
