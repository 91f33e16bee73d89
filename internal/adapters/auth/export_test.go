package auth

import (
	"io"
	"time"
)

func (s *Store) SetRandom(r io.Reader)         { s.random = r }
func (s *Store) SetClock(now func() time.Time) { s.now = now }
