package ports

// AlertRulesPort manages the alert rules directory of one instance.
type AlertRulesPort interface {
	Install(sourcePath string) (bool, error)
	Read() (path string, content string, found bool, err error)
	Clear() error
}
