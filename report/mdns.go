package report

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	// DashboardService is announced by kiosk dashboard servers.
	DashboardService = "_drawbot-dash._tcp"
	// RobotService is announced by robots serving a live feed.
	RobotService = "_drawbot._tcp"
)

// Advertise announces the robot's live feed on port. The returned
// function stops the announcement.
func Advertise(id string, port int) (func() error, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	service, err := mdns.NewMDNSService(host, RobotService, "", "", port, nil, []string{"id=" + id})
	if err != nil {
		return nil, fmt.Errorf("report: mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("report: mdns server: %w", err)
	}
	return server.Shutdown, nil
}

// Discover browses for dashboard servers for the duration of timeout
// and returns their base URLs in the order they answered.
func Discover(timeout time.Duration) ([]string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan []string, 1)
	go func() {
		var urls []string
		seen := make(map[string]bool)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			u := fmt.Sprintf("http://%s:%d", e.AddrV4, e.Port)
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
		found <- urls
	}()
	params := mdns.DefaultParams(DashboardService)
	params.Entries = entries
	params.Timeout = timeout
	err := mdns.Query(params)
	close(entries)
	urls := <-found
	if err != nil {
		return urls, fmt.Errorf("report: mdns: %w", err)
	}
	return urls, nil
}
