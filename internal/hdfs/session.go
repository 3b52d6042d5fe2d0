package hdfs

// session owns the client connection and the open file. release tears both
// down exactly once.
type session struct {
	client   Client
	file     File
	released bool
}

type releaseResult struct {
	flushErr      error
	fileCloseErr  error
	disconnectErr error
	hadFile       bool
}

func (s *session) hasFile() bool {
	return s != nil && s.file != nil
}

// release flushes and closes the file, then disconnects. Every step runs even
// if an earlier one fails.
func (s *session) release() releaseResult {
	var res releaseResult
	if s == nil || s.released {
		return res
	}
	s.released = true

	if s.file != nil {
		res.hadFile = true
		res.flushErr = s.file.Flush()
		res.fileCloseErr = s.file.Close()
		s.file = nil
	}
	if s.client != nil {
		res.disconnectErr = s.client.Close()
		s.client = nil
	}
	return res
}
