package configtypes

import (
	"fmt"
	"net"
	"strconv"
)

// ValidateListenAddress accepts what the metrics listener can bind: "host:port"
// or ":port" with a numeric port in 1-65535. A bare port is rejected since
// net.Listen would refuse it at startup.
func ValidateListenAddress(listen string) error {
	if listen == "" {
		return fmt.Errorf("listen address is empty")
	}
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return fmt.Errorf("expected host:port or :port, got %q", listen)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port %q must be a number in 1-65535", portStr)
	}
	return nil
}
