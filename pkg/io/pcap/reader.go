// Package pcap turns captured network packets into feature vectors
// suitable for anomaly detectors.
package pcap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Reader reads packets from PCAP files or live interfaces and emits
// per-packet feature vectors.
type Reader struct {
	handle    *pcap.Handle
	extractor *Extractor
	live      bool
}

// NewFileReader opens a capture file.
func NewFileReader(filename string) (*Reader, error) {
	handle, err := pcap.OpenOffline(filename)
	if err != nil {
		return nil, fmt.Errorf("open pcap %s: %w", filename, err)
	}
	return &Reader{handle: handle, extractor: NewExtractor()}, nil
}

// NewLiveReader opens a network interface for live capture.
func NewLiveReader(iface string, snaplen int32, promisc bool, timeout time.Duration) (*Reader, error) {
	handle, err := pcap.OpenLive(iface, snaplen, promisc, timeout)
	if err != nil {
		return nil, fmt.Errorf("open interface %s: %w", iface, err)
	}
	return &Reader{handle: handle, extractor: NewExtractor(), live: true}, nil
}

// Read drains the capture and returns all packets as feature vectors.
// Not meaningful on a live reader, which never sees EOF.
func (r *Reader) Read() ([][]float64, error) {
	if r.live {
		return nil, errors.New("cannot drain a live capture")
	}

	stream, err := r.Stream(context.Background())
	if err != nil {
		return nil, err
	}

	var data [][]float64
	for features := range stream {
		data = append(data, features)
	}
	return data, nil
}

// Stream returns a channel of per-packet feature vectors.
func (r *Reader) Stream(ctx context.Context) (<-chan []float64, error) {
	if r.handle == nil {
		return nil, errors.New("reader not initialized")
	}

	source := gopacket.NewPacketSource(r.handle, r.handle.LinkType())
	out := make(chan []float64, 1000)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-source.Packets():
				if !ok {
					return
				}
				features := r.extractor.fromPacket(packet)
				if features == nil {
					continue
				}
				select {
				case out <- features:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases the capture handle.
func (r *Reader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	return nil
}

// Feature vector layout produced by Extractor.
const (
	featPacketSize = iota
	featInterArrival
	featProtocol
	featSrcPort
	featDstPort
	featTCPFlags
	featTTL
	featPayloadSize
	numFeatures
)

// Extractor converts packets into fixed-width feature vectors. It is
// stateful: inter-arrival time depends on the previous packet.
type Extractor struct {
	last time.Time
}

// NewExtractor creates a packet feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract converts a gopacket.Packet into a feature vector.
func (e *Extractor) Extract(data any) ([]float64, error) {
	packet, ok := data.(gopacket.Packet)
	if !ok {
		return nil, fmt.Errorf("expected gopacket.Packet, got %T", data)
	}
	return e.fromPacket(packet), nil
}

func (e *Extractor) fromPacket(packet gopacket.Packet) []float64 {
	features := make([]float64, numFeatures)

	features[featPacketSize] = float64(len(packet.Data()))
	features[featInterArrival] = e.interArrival(packet)

	e.transport(packet, features)

	if ipLayer := packet.Layer(layers.LayerTypeIPv4); ipLayer != nil {
		features[featTTL] = float64(ipLayer.(*layers.IPv4).TTL)
	}
	if app := packet.ApplicationLayer(); app != nil {
		features[featPayloadSize] = float64(len(app.Payload()))
	}

	return features
}

// interArrival returns seconds since the previous packet.
func (e *Extractor) interArrival(packet gopacket.Packet) float64 {
	meta := packet.Metadata()
	if meta == nil || meta.Timestamp.IsZero() {
		return 0
	}

	var delta float64
	if !e.last.IsZero() {
		delta = meta.Timestamp.Sub(e.last).Seconds()
	}
	e.last = meta.Timestamp
	return delta
}

// transport fills the protocol, port, and flag features.
func (e *Extractor) transport(packet gopacket.Packet, features []float64) {
	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := tcpLayer.(*layers.TCP)
		features[featProtocol] = 6
		features[featSrcPort] = float64(tcp.SrcPort)
		features[featDstPort] = float64(tcp.DstPort)
		features[featTCPFlags] = tcpFlagBits(tcp)
		return
	}
	if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		features[featProtocol] = 17
		features[featSrcPort] = float64(udp.SrcPort)
		features[featDstPort] = float64(udp.DstPort)
		return
	}
	if packet.Layer(layers.LayerTypeICMPv4) != nil {
		features[featProtocol] = 1
	}
}

// FeatureNames returns the names of extracted features, in vector
// order.
func (e *Extractor) FeatureNames() []string {
	return []string{
		"packet_size",
		"inter_arrival_time",
		"protocol",
		"src_port",
		"dst_port",
		"tcp_flags",
		"ip_ttl",
		"payload_size",
	}
}

// tcpFlagBits packs the TCP flags into a single numeric feature.
func tcpFlagBits(tcp *layers.TCP) float64 {
	var bits int
	for i, set := range []bool{tcp.SYN, tcp.ACK, tcp.FIN, tcp.RST, tcp.PSH, tcp.URG} {
		if set {
			bits |= 1 << i
		}
	}
	return float64(bits)
}
