// Package feature derives the engineered columns consumed by the forecast models from a
// daily water usage history.
package feature

import (
	"fmt"
	"strconv"
	"strings"
)

type FeatureType string

const (
	FeatureTypeRaw      FeatureType = "raw"
	FeatureTypeLag      FeatureType = "lag"
	FeatureTypeCalendar FeatureType = "calendar"
)

// Feature is a named column of the engineered frame
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// Raw is a numeric column taken directly from the history
type Raw struct {
	Name string `json:"name"`
}

func NewRaw(name string) *Raw {
	return &Raw{Name: name}
}

func (r Raw) String() string {
	return r.Name
}

func (r Raw) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return r.Name, true
	}
	return "", false
}

func (r Raw) Type() FeatureType {
	return FeatureTypeRaw
}

func (r Raw) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = r.Name
	return res
}

// Lag is the value of a source column a fixed number of rows earlier
type Lag struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Lag    int    `json:"lag"`
}

func NewLag(name, source string, lag int) *Lag {
	return &Lag{
		Name:   name,
		Source: source,
		Lag:    lag,
	}
}

func (l Lag) String() string {
	return fmt.Sprintf("%s_lag_%d", l.Name, l.Lag)
}

func (l Lag) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return l.Name, true
	case "source":
		return l.Source, true
	case "lag":
		return strconv.Itoa(l.Lag), true
	}
	return "", false
}

func (l Lag) Type() FeatureType {
	return FeatureTypeLag
}

func (l Lag) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = l.Name
	res["source"] = l.Source
	res["lag"] = strconv.Itoa(l.Lag)
	return res
}

// Calendar is a column derived only from the date of the row
type Calendar struct {
	Name string `json:"name"`
}

func NewCalendar(name string) *Calendar {
	return &Calendar{Name: name}
}

func (c Calendar) String() string {
	return c.Name
}

func (c Calendar) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	}
	return "", false
}

func (c Calendar) Type() FeatureType {
	return FeatureTypeCalendar
}

func (c Calendar) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = c.Name
	return res
}
