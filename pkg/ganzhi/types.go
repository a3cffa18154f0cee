// Package ganzhi defines the sexagenary vocabulary the scoring engine works in:
// the ten heavenly stems, the twelve earthly branches, the five elements and the
// fixed relations between them.
package ganzhi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Element is one of the five phases.
type Element int

const (
	Wood Element = iota
	Fire
	Earth
	Metal
	Water
)

// Elements lists the five elements in generation order.
var Elements = [5]Element{Wood, Fire, Earth, Metal, Water}

var (
	elementGlyphs = [5]string{"木", "火", "土", "金", "水"}
	elementNames  = [5]string{"wood", "fire", "earth", "metal", "water"}
)

func (e Element) String() string {
	if e < Wood || e > Water {
		return fmt.Sprintf("Element(%d)", int(e))
	}
	return elementGlyphs[e]
}

// Name returns the English name used in configuration files.
func (e Element) Name() string {
	if e < Wood || e > Water {
		return ""
	}
	return elementNames[e]
}

// Generates returns the element this one produces (wood feeds fire).
func (e Element) Generates() Element { return (e + 1) % 5 }

// GeneratedBy returns the element that produces this one.
func (e Element) GeneratedBy() Element { return (e + 4) % 5 }

// Destroys returns the element this one controls (wood parts earth).
func (e Element) Destroys() Element { return (e + 2) % 5 }

// DestroyedBy returns the element that controls this one.
func (e Element) DestroyedBy() Element { return (e + 3) % 5 }

// ParseElement accepts either the glyph or the English name.
func ParseElement(s string) (Element, error) {
	s = strings.TrimSpace(s)
	for i := range elementGlyphs {
		if s == elementGlyphs[i] || strings.EqualFold(s, elementNames[i]) {
			return Element(i), nil
		}
	}
	return 0, fmt.Errorf("unknown element %q", s)
}

func (e Element) MarshalText() ([]byte, error) {
	if e < Wood || e > Water {
		return nil, fmt.Errorf("marshal invalid element %d", int(e))
	}
	return []byte(e.Name()), nil
}

func (e *Element) UnmarshalText(b []byte) error {
	v, err := ParseElement(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// ElementSet is a set of elements.
type ElementSet uint8

// NewElementSet builds a set from the given elements.
func NewElementSet(els ...Element) ElementSet {
	var s ElementSet
	for _, e := range els {
		s = s.Add(e)
	}
	return s
}

func (s ElementSet) Add(e Element) ElementSet { return s | 1<<uint(e) }
func (s ElementSet) Has(e Element) bool     { return s&(1<<uint(e)) != 0 }

// Elements returns the members in generation order.
func (s ElementSet) Elements() []Element {
	var out []Element
	for _, e := range Elements {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// MarshalJSON renders the set as a list of element names.
func (s ElementSet) MarshalJSON() ([]byte, error) {
	names := make([]string, 0, 5)
	for _, e := range s.Elements() {
		names = append(names, e.Name())
	}
	return json.Marshal(names)
}

func (s ElementSet) String() string {
	var b strings.Builder
	for _, e := range s.Elements() {
		b.WriteString(e.String())
	}
	return b.String()
}

// Polarity is yin or yang.
type Polarity int

const (
	Yang Polarity = iota
	Yin
)

func (p Polarity) String() string {
	if p == Yin {
		return "yin"
	}
	return "yang"
}

// Gender of a subject. It selects the traversal direction of major periods.
type Gender int

const (
	Male Gender = iota + 1
	Female
)

func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unknown"
	}
}

func (g Gender) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Gender) UnmarshalText(b []byte) error {
	v, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

// ParseGender accepts "male"/"female" (and the common single-letter and Chinese forms).
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "男":
		return Male, nil
	case "female", "f", "女":
		return Female, nil
	}
	return 0, fmt.Errorf("%w: unknown gender %q", ErrInvalidInput, s)
}
