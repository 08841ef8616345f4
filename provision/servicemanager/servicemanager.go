package servicemanager

type ServiceStatus string

const (
	Active   ServiceStatus = "active"
	Inactive ServiceStatus = "inactive"
	Failed   ServiceStatus = "failed"
	Unknown  ServiceStatus = "unknown"
)

// ServiceManager represents operations that can be performed on system services.
type ServiceManager interface {
	UnitExists(serviceName string) (bool, error)
	EnableService(serviceName string) error
	StartService(serviceName string) error
	IsServiceEnabled(serviceName string) (bool, error)
	CheckServiceStatus(serviceName string) (ServiceStatus, error)
}
