package cfg

type Cfg struct {
	// Chat integration configuration
	Integration   string
	DiscordToken  string
	TelegramToken string

	// Application configuration
	DataDir string
	Port    string

	// Application metadata
	Debug   bool
	Version string
}
