package capture

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

const minTransportLen = 4

// DecodeIPv4 parses a raw IPv4 packet into a Record. Fragments past the
// first and packets without transport ports get empty port fields.
func DecodeIPv4(data []byte, ts time.Time) (Record, error) {
	if len(data) < ipv4.HeaderLen {
		return Record{}, fmt.Errorf("packet is less than %v bytes", ipv4.HeaderLen)
	}

	if int((data[0]>>4)&0x0f) != 4 {
		return Record{}, fmt.Errorf("packet is not ipv4, type: %v", int((data[0]>>4)&0x0f))
	}

	// Adjust our start position based on the advertised ip header length
	ihl := int(data[0]&0x0f) << 2
	if ihl < ipv4.HeaderLen {
		return Record{}, fmt.Errorf("packet had an invalid header length: %v", ihl)
	}

	// Second or further fragment carries no transport header.
	flagsfrags := binary.BigEndian.Uint16(data[6:8])
	fragment := (flagsfrags & 0x1fff) != 0

	proto := data[9]

	minLen := ihl
	withPorts := !fragment && (proto == ProtoTCP || proto == ProtoUDP)
	if withPorts {
		minLen += minTransportLen
	}
	if len(data) < minLen {
		return Record{}, fmt.Errorf("packet is less than %v bytes, ip header len: %v", minLen, ihl)
	}

	srcAddr := net.IP(data[12:16]).String()
	dstAddr := net.IP(data[16:20]).String()

	var srcPort, dstPort uint16
	if withPorts {
		srcPort = binary.BigEndian.Uint16(data[ihl : ihl+2])
		dstPort = binary.BigEndian.Uint16(data[ihl+2 : ihl+4])
	}

	if fragment {
		// Keep the protocol name but no ports, same shape as ICMP.
		r := NewRecord(ts, srcAddr, dstAddr, proto, 0, 0)
		r.SrcPort = ""
		r.DstPort = ""
		return r, nil
	}

	return NewRecord(ts, srcAddr, dstAddr, proto, srcPort, dstPort), nil
}

// BuildIPv4 assembles a minimal IPv4 packet that DecodeIPv4 accepts.
// Used by the replay tooling and tests.
func BuildIPv4(srcIP, dstIP net.IP, proto uint8, srcPort, dstPort uint16) []byte {
	header := make([]byte, ipv4.HeaderLen)
	header[0] = 0x45 // version 4, ihl 5
	header[8] = 0x40 // ttl
	header[9] = proto
	copy(header[12:16], srcIP.To4())
	copy(header[16:20], dstIP.To4())

	if proto != ProtoTCP && proto != ProtoUDP {
		binary.BigEndian.PutUint16(header[2:4], uint16(len(header)))
		return header
	}

	transport := make([]byte, minTransportLen)
	binary.BigEndian.PutUint16(transport[0:2], srcPort)
	binary.BigEndian.PutUint16(transport[2:4], dstPort)
	pkt := append(header, transport...)
	binary.BigEndian.PutUint16(pkt[2:4], uint16(len(pkt)))
	return pkt
}
