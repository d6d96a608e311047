package instance

import "os"

// ID names this process in logs. PETFINDER_INSTANCE_ID wins, then the
// platform dyno name, then the host name, then "<service>-0".
func ID(service string) string {
	for _, key := range []string{"PETFINDER_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return service + "-0"
}
