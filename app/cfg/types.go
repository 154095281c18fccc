package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SyncInterval      int
	APIAccessKey      string
	MatchWindowDays   int
	NotifyWindowHours int

	// Delivery sink configuration
	SinkURL     string
	SinkTimeout int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
