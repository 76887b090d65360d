package orchestrator

import (
	"context"

	"go.uber.org/zap"

	"github.com/allbin/groundlink/internal/link"
	"github.com/allbin/groundlink/internal/mavlink"
)

// Transport is one restartable pipeline. Start returns once the transport is
// usable; afterwards the pipeline reports its end through Hooks.OnExit.
type Transport interface {
	Start(ctx context.Context, device string) error
	Stop() error
	Send(msg mavlink.Message) error
}

// TransportFactory builds the transport for mode wired to hooks
type TransportFactory func(mode Mode, hooks link.Hooks) (Transport, error)

// LinkTransports returns the production factory: a DirectPipeline for direct
// mode and a ProxyPipeline for proxy mode, both opening devices with open.
func LinkTransports(open link.OpenFunc, direct link.DirectConfig, proxy link.ProxyConfig, mavlinkVersion int, log *zap.Logger) TransportFactory {
	return func(mode Mode, hooks link.Hooks) (Transport, error) {
		switch mode {
		case ModeDirect:
			return link.NewDirectPipeline(direct, open, link.MAVLinkDecoder, link.MAVLinkEncoder(mavlinkVersion), hooks, log), nil
		case ModeProxy:
			return link.NewProxyPipeline(proxy, open, nil, link.MAVLinkDecoder, hooks, log), nil
		default:
			return nil, ErrInvalidMode
		}
	}
}
