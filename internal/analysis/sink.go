package analysis

// Sink receives the progress of a scan. It is write-only from the scanner's side and
// is called from the scanning goroutine only.
type Sink interface {
	Status(msg string)
	Progress(percent int)
	Counts(c Counts)
	Page(result PageResult)
	Totals(t Totals)
}

// Status messages shared with the transports
const (
	StatusLoading       = "Loading PDF…"
	StatusComplete      = "Analysis complete"
	StatusLoadError     = "Error loading PDF"
	StatusNoToken       = "No document token found. Upload a PDF first."
	StatusTokenExpired  = "Document expired. Please re-upload."
	statusScanningPageF = "Scanning page %d of %d"
)

// NopSink discards everything
type NopSink struct{}

func (NopSink) Status(string)   {}
func (NopSink) Progress(int)    {}
func (NopSink) Counts(Counts)   {}
func (NopSink) Page(PageResult) {}
func (NopSink) Totals(Totals)   {}

// MultiSink fans every call out to each sink in order
type MultiSink []Sink

func (m MultiSink) Status(msg string) {
	for _, s := range m {
		s.Status(msg)
	}
}

func (m MultiSink) Progress(percent int) {
	for _, s := range m {
		s.Progress(percent)
	}
}

func (m MultiSink) Counts(c Counts) {
	for _, s := range m {
		s.Counts(c)
	}
}

func (m MultiSink) Page(result PageResult) {
	for _, s := range m {
		s.Page(result)
	}
}

func (m MultiSink) Totals(t Totals) {
	for _, s := range m {
		s.Totals(t)
	}
}
