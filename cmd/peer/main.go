// Command peer runs one overlay peer: registers with the seed mesh,
// selects power-law neighbours, and participates in gossip and
// two-level liveness detection, per spec.md §4.4-§4.9.
package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"meshgossip/internal/logging"
	"meshgossip/internal/netconf"
	"meshgossip/internal/peersvc"
	"meshgossip/internal/statusapi"
	"meshgossip/internal/wire"
)

func main() {
	cmd := &cobra.Command{
		Use:   "peer BIND_IP BIND_PORT [CONFIG_PATH]",
		Short: "Run a mesh overlay peer",
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

	log, err := logging.New(logging.RolePeer, port, self.String())
	if err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}

	seeds, err := netconf.LoadSeeds(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	n := peersvc.New(self, seeds, log, rng)

	ln, err := n.Listen()
	if err != nil {
		log.Fatalf("listen failed: %v", err)
	}
	go n.Serve(ln)

	if err := n.Start(); err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	if apiAddr != "" {
		router := statusapi.NewPeerRouter(n)
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
