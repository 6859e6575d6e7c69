package cfg

import "time"

type Cfg struct {
	// Storage configuration
	Store  string
	DBPath string

	// Application configuration
	ProvidersDir       string
	Port               string
	DefaultPageSize    int
	MaxPageSize        int
	FetchTimeout       time.Duration
	ImageProbeTimeout  time.Duration
	RefreshInterval    time.Duration
	WorkerCount        int
	APIAccessKey       string
	RebuildPreferences bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
