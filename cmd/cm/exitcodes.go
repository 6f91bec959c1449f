package main

// Exit codes
const (
	ExitSuccess        = 0 // Success, including scans with missing citations
	ExitError          = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError    = 2 // Configuration error (missing refsDir, invalid settings)
	ExitDataError      = 3 // Data error (malformed RIS, unknown RIS type, malformed record)
	ExitFormatterError = 4 // Bibliography formatter failed; cache already updated
)
