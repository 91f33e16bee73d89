package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// OptValue is the state of one option inside a configuration.
type OptValue uint8

const (
	// OptUndef means the configuration does not constrain the option.
	OptUndef OptValue = iota
	// OptOn means "+name".
	OptOn
	// OptOff means "-name".
	OptOff
)

// LocalOption is the builtin option that is only set on the local queue.
const LocalOption = "_local"

// OptionDecl declares a boolean option (Group empty) or one member of a
// selection group.
type OptionDecl struct {
	Group string
	Name  string
}

// Config is a parsed configuration: one value per declared option.
type Config []OptValue

// Options is the set of declared options of a project. Configurations are
// strings such as "+debug -static"; within a group, turning one member on
// turns the others off.
type Options struct {
	decls []OptionDecl
	index map[string]int
}

// NewOptions creates a table holding only the builtin _local option.
func NewOptions() *Options {
	o := &Options{index: map[string]int{}}
	o.decls = append(o.decls, OptionDecl{Name: LocalOption})
	o.index[LocalOption] = 0
	return o
}

// Declare adds an option. Group members are kept adjacent.
func (o *Options) Declare(d OptionDecl) error {
	if !ValidName(d.Name) || (d.Group != "" && !ValidName(d.Group)) {
		return zerr.With(ErrSyntax, "option", d.Name)
	}
	if _, dup := o.index[d.Name]; dup || o.isGroup(d.Name) {
		return zerr.With(zerr.Wrap(ErrInvalidOption, "redefined"), "option", d.Name)
	}
	if _, clash := o.index[d.Group]; d.Group != "" && clash {
		return zerr.With(zerr.Wrap(ErrInvalidOption, "redefined"), "option", d.Group)
	}

	pos := len(o.decls)
	if d.Group != "" {
		for i := len(o.decls) - 1; i >= 0; i-- {
			if o.decls[i].Group == d.Group {
				pos = i + 1
				break
			}
		}
	}
	o.decls = append(o.decls, OptionDecl{})
	copy(o.decls[pos+1:], o.decls[pos:])
	o.decls[pos] = d
	o.reindex()
	return nil
}

func (o *Options) reindex() {
	clear(o.index)
	for i, d := range o.decls {
		o.index[d.Name] = i
	}
}

func (o *Options) isGroup(name string) bool {
	for _, d := range o.decls {
		if d.Group == name {
			return true
		}
	}
	return false
}

// Known reports whether name is an option or an option group.
func (o *Options) Known(name string) bool {
	_, ok := o.index[name]
	return ok || o.isGroup(name)
}

// Len returns the number of declared options.
func (o *Options) Len() int { return len(o.decls) }

// Parse converts a configuration string.
func (o *Options) Parse(cfg string) (Config, error) {
	c := make(Config, len(o.decls))
	if err := o.Apply(c, cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply sets the options named in cfg on c. Contradicting values within cfg
// are an error; values of c not named in cfg are kept.
func (o *Options) Apply(c Config, cfg string) error {
	seen := make(map[int]OptValue)
	for _, word := range strings.Fields(cfg) {
		val := OptOn
		switch word[0] {
		case '-':
			val = OptOff
			word = word[1:]
		case '+':
			word = word[1:]
		}
		i, ok := o.index[word]
		if !ok {
			return zerr.With(ErrInvalidOption, "option", word)
		}
		if prev, dup := seen[i]; dup && prev != val {
			return zerr.With(zerr.Wrap(ErrInvalidOption, "conflicting values"), "option", word)
		}
		seen[i] = val
		c[i] = val
		if g := o.decls[i].Group; g != "" && val == OptOn {
			for k, d := range o.decls {
				if k == i || d.Group != g {
					continue
				}
				if seen[k] == OptOn {
					return zerr.With(zerr.Wrap(ErrInvalidOption, "conflicting values"), "option", word)
				}
				c[k] = OptOff
			}
		}
	}
	return nil
}

// Valid reports whether cfg parses.
func (o *Options) Valid(cfg string) bool {
	_, err := o.Parse(cfg)
	return err == nil
}

// Compat reports whether no option is on in one config and off in the other.
func Compat(a, b Config) bool {
	for i := range a {
		if i >= len(b) {
			break
		}
		if (a[i] == OptOn && b[i] == OptOff) || (a[i] == OptOff && b[i] == OptOn) {
			return false
		}
	}
	return true
}

// Compatible is Compat on configuration strings. Unparsable strings are never
// compatible.
func (o *Options) Compatible(from, to string) bool {
	f, err := o.Parse(from)
	if err != nil {
		return false
	}
	t, err := o.Parse(to)
	if err != nil {
		return false
	}
	return Compat(f, t)
}

// SubsetOf reports whether every option constrained by a has the same value in b.
func SubsetOf(a, b Config) bool {
	for i := range a {
		if a[i] != OptUndef && (i >= len(b) || b[i] != a[i]) {
			return false
		}
	}
	return true
}

// Format renders c in normalized form: declaration order, "+name" for options
// that are on, "-name" for options that are off unless another member of the
// same group is on, no blanks.
func (o *Options) Format(c Config) string {
	var b strings.Builder
	for i, d := range o.decls {
		switch c[i] {
		case OptOn:
			b.WriteString("+" + d.Name)
		case OptOff:
			show := true
			if d.Group != "" {
				for k, e := range o.decls {
					if e.Group == d.Group && c[k] == OptOn {
						show = false
						break
					}
				}
			}
			if show {
				b.WriteString("-" + d.Name)
			}
		}
	}
	return b.String()
}

// Value returns "$(_name)": "+", "-" or "" for an option, the active member for
// a group. The second result is false if name is neither.
func (o *Options) Value(c Config, name string) (string, bool) {
	if i, ok := o.index[name]; ok {
		switch c[i] {
		case OptOn:
			return "+", true
		case OptOff:
			return "-", true
		}
		return "", true
	}
	if !o.isGroup(name) {
		return "", false
	}
	for i, d := range o.decls {
		if d.Group == name && c[i] == OptOn {
			return d.Name, true
		}
	}
	return "", true
}

// ValidName reports whether s is a valid variable or option name.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && isDigit(c)) {
			continue
		}
		return false
	}
	return true
}
