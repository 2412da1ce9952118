package pagerbits

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the frame server using DNS-SD
 *
 * Description:
 *
 *     So that clients on the local network can find the decoder
 *     without being told an address and port.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package, no
 *     system daemon needed.
 */

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_pager-frames._tcp"

/* By default "pagerbits on <hostname>". */
func DefaultServiceName() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "pagerbits"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "pagerbits on " + hostname
}

// AnnounceFrameServer responds to DNS-SD queries until ctx is done.
func AnnounceFrameServer(ctx context.Context, name string, port int) error {
	if name == "" {
		name = DefaultServiceName()
	}

	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		return fmt.Errorf("DNS-SD: failed to create service: %w", svErr)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("DNS-SD: failed to create responder: %w", rpErr)
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		return fmt.Errorf("DNS-SD: failed to add service: %w", addErr)
	}

	Logger().Info("DNS-SD: Announcing frame server", "port", port, "name", name)

	var respondErr = rp.Respond(ctx)
	if respondErr != nil && ctx.Err() == nil {
		return fmt.Errorf("DNS-SD: responder error: %w", respondErr)
	}

	return nil
}
