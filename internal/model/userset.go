package model

import (
	"encoding/json"
	"sort"
)

// UserSet is a set of user ids.
type UserSet map[string]struct{}

func NewUserSet(ids ...string) UserSet {
	s := make(UserSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}

	return s
}

func (s UserSet) Add(id string) {
	s[id] = struct{}{}
}

func (s UserSet) Has(id string) bool {
	_, ok := s[id]

	return ok
}

func (s UserSet) Len() int {
	return len(s)
}

// Slice returns the ids in ascending order.
func (s UserSet) Slice() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (s UserSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *UserSet) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*s = NewUserSet(ids...)

	return nil
}
