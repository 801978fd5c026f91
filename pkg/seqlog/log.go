package seqlog

import "os"

var logFile *os.File

// ReloadLogger replaces Zero with a logger bound to filepath and closes the
// previously opened log file, if any.
func ReloadLogger(filepath string, level string, pretty bool) {
	f, writer, err := newWriter(filepath)
	if err != nil {
		Zero.Error().Err(err).Str("file", filepath).Msg("failed to open log file, keep logging to stdout")
		return
	}

	oldFile := logFile
	logFile = f
	Zero = newZeroLogger(writer, level, pretty)

	if oldFile != nil {
		_ = oldFile.Close()
	}
}
