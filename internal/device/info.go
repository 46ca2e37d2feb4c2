// Package device reports host facts for the /device-info endpoint:
// identity, addressing, thermal state, memory, load, and uptime. Readings
// come from procfs and sysfs; on hosts where a source is missing the field
// is simply omitted.
package device

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/procfs"
	"github.com/rs/zerolog/log"
)

// Info is the device snapshot served to clients.
type Info struct {
	Hostname     string  `json:"hostname"`
	IPAddress    string  `json:"ip_address"`
	CPUTempC     float64 `json:"cpu_temp_c,omitempty"`
	LoadAvg1     float64 `json:"load_avg_1m,omitempty"`
	MemTotalMB   uint64  `json:"mem_total_mb,omitempty"`
	MemFreeMB    uint64  `json:"mem_available_mb,omitempty"`
	UptimeSec    uint64  `json:"uptime_sec,omitempty"`
	ServerID     string  `json:"server_id"`
	Version      string  `json:"version"`
	CapturedAt   string  `json:"captured_at"`
}

const thermalZonePath = "/sys/class/thermal/thermal_zone0/temp"

// Collect gathers a best-effort snapshot. Individual probe failures are
// logged at debug and leave their field zero.
func Collect(serverID, version string) Info {
	info := Info{
		ServerID:   serverID,
		Version:    version,
		CapturedAt: time.Now().Format(time.RFC3339),
	}

	if host, err := os.Hostname(); err == nil {
		info.Hostname = host
	}
	info.IPAddress = outboundIP()

	if temp, err := cpuTemp(); err == nil {
		info.CPUTempC = temp
	} else {
		log.Debug().Err(err).Msg("CPU temperature unavailable")
	}

	fs, err := procfs.NewDefaultFS()
	if err != nil {
		log.Debug().Err(err).Msg("procfs unavailable")
		return info
	}

	if load, err := fs.LoadAvg(); err == nil {
		info.LoadAvg1 = load.Load1
	}
	if mem, err := fs.Meminfo(); err == nil {
		if mem.MemTotal != nil {
			info.MemTotalMB = *mem.MemTotal / 1024
		}
		if mem.MemAvailable != nil {
			info.MemFreeMB = *mem.MemAvailable / 1024
		}
	}
	if stat, err := fs.Stat(); err == nil && stat.BootTime > 0 {
		info.UptimeSec = uint64(time.Now().Unix()) - stat.BootTime
	}

	return info
}

// outboundIP finds the address the host would use to reach the network.
// The dial never sends a packet; UDP connect just resolves routing.
func outboundIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// cpuTemp reads the SoC thermal zone, reported in millidegrees.
func cpuTemp() (float64, error) {
	raw, err := os.ReadFile(thermalZonePath)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse thermal zone reading: %w", err)
	}
	return float64(milli) / 1000.0, nil
}
