// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"fmt"
	"regexp"
)

var brokerRegexp = regexp.MustCompile(`^(?:([0-9a-z_-]+)(?::([0-9A-Za-z-!"#$%&'()*+,.:;<=>?@[\]^_{|}~]+))?@)?([0-9a-z.-]+:[0-9]+)$`) // user:pass@host:port

// Broker address with optional credentials
type Broker struct {
	Username string
	Password string
	Address  string
}

// ParseBroker parses a broker in the "[user[:pass]@]host:port" notation
func ParseBroker(broker string) (*Broker, error) {
	parts := brokerRegexp.FindStringSubmatch(broker)
	if parts == nil {
		return nil, fmt.Errorf("mqtt: invalid broker %q, expected [user[:pass]@]host:port", broker)
	}
	return &Broker{
		Username: parts[1],
		Password: parts[2],
		Address:  parts[3],
	}, nil
}

// URI returns the broker URI that can be used in Config.Brokers
func (b *Broker) URI(tls bool) string {
	if tls {
		return "ssl://" + b.Address
	}
	return "tcp://" + b.Address
}
