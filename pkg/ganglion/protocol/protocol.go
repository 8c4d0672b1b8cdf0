// Ganglink Core
// Copyright (c) 2026 The Ganglink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ganglink Core.
//
// Ganglink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ganglink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ganglink Core.  If not, see <http://www.gnu.org/licenses/>.

// Package protocol implements the line protocol spoken by the Ganglion hub:
// outbound command lines, inbound line splitting and prefix classification.
package protocol

import "strings"

// Outbound command lines. Each is sent verbatim, newline included.
const (
	CmdScanStart  = "s,start,;\n"
	CmdScanStop   = "s,stop,;\n"
	CmdBLEStart   = "p,start,ble,;\n"
	CmdDisconnect = "d,;\n"
	CmdDataStart  = "k,b,;\n"
	CmdDataStop   = "k,s,;\n"
	CmdImpStart   = "i,start,;\n"
	CmdImpStop    = "i,stop,;\n"
	CmdAccelStart = "a,start,;\n"
	CmdAccelStop  = "a,stop,;\n"
)

// ConnectCommand returns the line asking the hub to connect to device name.
func ConnectCommand(name string) string {
	return "c," + name + ",;\n"
}

// Inbound line prefixes.
const (
	PrefixSamples       = "t,204,"
	PrefixDeviceFound   = "s,201,"
	PrefixImpedance     = "i,203,"
	PrefixConnected     = "c,200,"
	PrefixLinkError     = "q,501,"
	PrefixBoardOff      = "k,400,"
	PrefixConnectFailed = "c,413,"
)

// PrefixLength is the width of every inbound classification prefix.
const PrefixLength = 6

// Kind identifies the type of an inbound line.
type Kind int

const (
	KindUnknown Kind = iota
	KindSamples
	KindDeviceFound
	KindImpedance
	KindConnected
	KindLinkError
	KindHardwareWarning
)

func (k Kind) String() string {
	switch k {
	case KindSamples:
		return "samples"
	case KindDeviceFound:
		return "device_found"
	case KindImpedance:
		return "impedance"
	case KindConnected:
		return "connected"
	case KindLinkError:
		return "link_error"
	case KindHardwareWarning:
		return "hardware_warning"
	default:
		return "unknown"
	}
}

// Message is a classified inbound line. Only the fields relevant to Kind
// are populated.
type Message struct {
	Raw      string
	Device   string
	Prefix   string
	Integers []int
	Kind     Kind
}

// Classify matches line against the known prefixes. Lines shorter than
// MinLineLength or with an unknown prefix return KindUnknown.
func Classify(line string) Message {
	msg := Message{Raw: line}
	if len(line) < MinLineLength {
		return msg
	}

	prefix := line[:PrefixLength]
	rest := line[PrefixLength:]
	msg.Prefix = prefix

	switch prefix {
	case PrefixSamples:
		msg.Kind = KindSamples
		msg.Integers = ParseIntegers(rest)
	case PrefixImpedance:
		msg.Kind = KindImpedance
		msg.Integers = ParseIntegers(rest)
	case PrefixDeviceFound:
		msg.Kind = KindDeviceFound
		msg.Device = deviceName(rest)
	case PrefixConnected:
		msg.Kind = KindConnected
	case PrefixLinkError:
		msg.Kind = KindLinkError
	case PrefixBoardOff, PrefixConnectFailed:
		msg.Kind = KindHardwareWarning
	default:
		msg.Prefix = ""
	}

	return msg
}

// deviceName returns the text up to the next comma, or up to the line
// terminator when the name is not followed by one.
func deviceName(s string) string {
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[:i]
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		return s[:i]
	}
	return s
}
