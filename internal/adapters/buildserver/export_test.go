package buildserver

// SetAccounts replaces the user database lookup.
func (s *Server) SetAccounts(lookup func(uid int) (*Account, error)) { s.lookup = lookup }

// SetRoot pretends the server runs as root.
func (s *Server) SetRoot(root bool) { s.asRoot = root }
