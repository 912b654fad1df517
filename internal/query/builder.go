// Package query encodes structured filters into the CRM's list-endpoint
// parameters: paging, ordering, projection and indexed whereGroup clauses.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

type Kind string

const (
	KindEquals      Kind = "equals"
	KindNotEquals   Kind = "notEquals"
	KindIn          Kind = "in"
	KindTextFilter  Kind = "textFilter"
	KindBetween     Kind = "between"
	KindStartsWith  Kind = "startsWith"
	KindContains    Kind = "contains"
	KindGreaterThan Kind = "greaterThan"
	KindLessThan    Kind = "lessThan"
	KindAfter       Kind = "after"
	KindBefore      Kind = "before"
	KindIsTrue      Kind = "isTrue"
	KindIsFalse     Kind = "isFalse"
	KindOr          Kind = "or"
	KindPrimary     Kind = "primary"
)

// Predicate is one where clause. Which of Value, Values and Sub is read depends on Kind;
// unknown kinds are sent as-is with Value.
type Predicate struct {
	Kind      Kind
	Attribute string
	Value     string
	Values    []string
	Sub       []Predicate
}

func Equals(attr, v string) Predicate { return Predicate{Kind: KindEquals, Attribute: attr, Value: v} }
func NotEquals(attr, v string) Predicate { return Predicate{Kind: KindNotEquals, Attribute: attr, Value: v} }
func In(attr string, vs ...string) Predicate { return Predicate{Kind: KindIn, Attribute: attr, Values: vs} }
func StartsWith(attr, v string) Predicate { return Predicate{Kind: KindStartsWith, Attribute: attr, Value: v} }
func Contains(attr, v string) Predicate { return Predicate{Kind: KindContains, Attribute: attr, Value: v} }
func GreaterThan(attr, v string) Predicate { return Predicate{Kind: KindGreaterThan, Attribute: attr, Value: v} }
func LessThan(attr, v string) Predicate { return Predicate{Kind: KindLessThan, Attribute: attr, Value: v} }
func After(attr, v string) Predicate { return Predicate{Kind: KindAfter, Attribute: attr, Value: v} }
func Before(attr, v string) Predicate { return Predicate{Kind: KindBefore, Attribute: attr, Value: v} }
func IsTrue(attr string) Predicate { return Predicate{Kind: KindIsTrue, Attribute: attr} }
func IsFalse(attr string) Predicate { return Predicate{Kind: KindIsFalse, Attribute: attr} }
func Primary(name string) Predicate { return Predicate{Kind: KindPrimary, Value: name} }

// Text is a full-text search; the query is wildcard-wrapped when encoded.
func Text(q string) Predicate { return Predicate{Kind: KindTextFilter, Value: q} }

func Between(attr, from, to string) Predicate {
	return Predicate{Kind: KindBetween, Attribute: attr, Values: []string{from, to}}
}

func Or(ps ...Predicate) Predicate { return Predicate{Kind: KindOr, Sub: ps} }

// empty reports predicates that must not be emitted: blank text searches and
// groups whose members are all empty.
func (p Predicate) empty() bool {
	switch p.Kind {
	case KindTextFilter:
		return WrapWildcards(p.Value) == ""
	case KindOr:
		for _, s := range p.Sub {
			if !s.empty() {
				return false
			}
		}
		return true
	}
	return false
}

type pair struct{ key, value string }

// Builder assigns whereGroup slots in the order predicates are added.
type Builder struct {
	next  int
	pairs []pair
}

func NewBuilder() *Builder { return &Builder{} }

// Add appends predicates, each taking the next whereGroup index. Empty text
// searches are dropped without consuming an index.
func (b *Builder) Add(ps ...Predicate) *Builder {
	for _, p := range ps {
		if p.empty() {
			continue
		}
		b.pairs = p.encode("whereGroup["+strconv.Itoa(b.next)+"]", b.pairs)
		b.next++
	}
	return b
}

// Len is the number of whereGroup slots used.
func (b *Builder) Len() int { return b.next }

// Pairs returns the encoded keys in emission order, useful for logging and tests.
func (b *Builder) Pairs() [][2]string {
	out := make([][2]string, len(b.pairs))
	for i, p := range b.pairs {
		out[i] = [2]string{p.key, p.value}
	}
	return out
}

// ApplyTo adds the encoded clauses to v.
func (b *Builder) ApplyTo(v url.Values) {
	for _, p := range b.pairs {
		v.Add(p.key, p.value)
	}
}

func (b *Builder) Values() url.Values {
	v := url.Values{}
	b.ApplyTo(v)
	return v
}

func (p Predicate) encode(prefix string, out []pair) []pair {
	out = append(out, pair{prefix + "[type]", string(p.Kind)})
	if p.Attribute != "" {
		out = append(out, pair{prefix + "[attribute]", p.Attribute})
	}
	switch p.Kind {
	case KindTextFilter:
		out = append(out, pair{prefix + "[value]", WrapWildcards(p.Value)})
	case KindIn:
		for _, v := range p.Values {
			out = append(out, pair{prefix + "[value][]", v})
		}
	case KindBetween:
		for i, v := range p.Values {
			out = append(out, pair{prefix + "[value][" + strconv.Itoa(i) + "]", v})
		}
	case KindOr:
		i := 0
		for _, s := range p.Sub {
			if s.empty() {
				continue
			}
			out = s.encode(prefix+"[value]["+strconv.Itoa(i)+"]", out)
			i++
		}
	case KindIsTrue, KindIsFalse:
	default:
		out = append(out, pair{prefix + "[value]", p.Value})
	}
	return out
}

// ListParams are the common list-endpoint parameters. Zero values are omitted.
type ListParams struct {
	MaxSize       int
	Offset        int
	OrderBy       string
	Order         string
	Select        []string
	PrimaryFilter string
	Where         []Predicate
}

func (lp ListParams) Values() url.Values {
	v := url.Values{}
	if lp.MaxSize > 0 {
		v.Set("maxSize", strconv.Itoa(lp.MaxSize))
		v.Set("offset", strconv.Itoa(lp.Offset))
	}
	if lp.OrderBy != "" {
		v.Set("orderBy", lp.OrderBy)
	}
	if lp.Order != "" {
		v.Set("order", lp.Order)
	}
	if len(lp.Select) > 0 {
		v.Set("attributeSelect", strings.Join(lp.Select, ","))
	}
	if lp.PrimaryFilter != "" {
		v.Set("primaryFilter", lp.PrimaryFilter)
	}
	NewBuilder().Add(lp.Where...).ApplyTo(v)
	return v
}
