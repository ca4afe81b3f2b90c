// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"

	"solstice/internal/log"
	"solstice/internal/transport"
	"solstice/internal/transport/udp"
)

// sinks builds the transports selected by the configuration. Reports
// always go to w; the log, websocket and UDP transports are added when
// enabled.
func (a *app) sinks(w io.Writer) (transport.Multi, error) {
	format, err := transport.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	var sinks transport.Multi
	if w != nil {
		sinks = append(sinks, transport.NewTextTransport(w, format, a.cfg.Output.Precision))
	}
	return a.networkSinks(sinks)
}

// networkSinks appends the optional transports to sinks.
func (a *app) networkSinks(sinks transport.Multi) (transport.Multi, error) {
	if log.GetLevel() == log.LevelDebug {
		sinks = append(sinks, transport.NewLoggingTransport())
	}

	if addr := a.cfg.Transport.WebSocketAddress; addr != "" {
		ws := transport.NewWebSocketTransport(addr)
		ws.Start()
		sinks = append(sinks, ws)
	}

	if addr := a.cfg.Transport.UDPTargetAddress; addr != "" {
		pub, err := udp.Dial(addr)
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("udp transport: %w", err)
		}
		sinks = append(sinks, pub)
	}
	return sinks, nil
}
