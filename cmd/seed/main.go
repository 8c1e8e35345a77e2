// Command seed runs one seed node of the mesh: a trusted directory
// member that votes on peer registration and removal, per spec.md §4.2-§4.3.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meshgossip/internal/logging"
	"meshgossip/internal/netconf"
	"meshgossip/internal/seedsvc"
	"meshgossip/internal/statusapi"
	"meshgossip/internal/wire"
)

func main() {
	cmd := &cobra.Command{
		Use:   "seed BIND_IP BIND_PORT [CONFIG_PATH]",
		Short: "Run a mesh seed node",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  run,
	}
	cmd.Flags().StringP("api-addr", "a", "", "address to serve the status API on (disabled if empty)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ip := args[0]
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", args[1], err)
	}
	configPath := "config.csv"
	if len(args) == 3 {
		configPath = args[2]
	}
	apiAddr, _ := cmd.Flags().GetString("api-addr")

	self := wire.Endpoint{IP: ip, Port: port}

	log, err := logging.New(logging.RoleSeed, port, self.String())
	if err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}

	seeds, err := netconf.LoadSeeds(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	n := seedsvc.New(self, seeds, log)

	ln, err := n.Listen()
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}
	go n.Serve(ln)
	time.Sleep(2 * time.Second) // let every seed's listener bind before dialing out
	n.DialHigherPortSeeds()

	if apiAddr != "" {
		router := statusapi.NewSeedRouter(n)
		go func() {
			if err := http.ListenAndServe(apiAddr, router); err != nil {
				log.Warnf("status API stopped: %v", err)
			}
		}()
		log.Infof("Status API listening on %s", apiAddr)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("Shutting down.")
	return nil
}
