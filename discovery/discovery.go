// Copyright 2026 The Flouka Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package discovery announces and finds statistics services over mDNS.
package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"
)

const (
	ServiceType = "_flouka._tcp"
	Domain      = "local."
)

// A Service is an announced statistics service.
type Service struct {
	Instance string
	Host     string
	Port     int
	Addrs    []net.IP
	TXT      map[string]string
}

// Addr returns a dialable address of s, preferring IPv4.
func (s *Service) Addr() string {
	for _, ip := range s.Addrs {
		if ip.To4() != nil {
			return net.JoinHostPort(ip.String(), fmt.Sprint(s.Port))
		}
	}
	if len(s.Addrs) > 0 {
		return net.JoinHostPort(s.Addrs[0].String(), fmt.Sprint(s.Port))
	}
	return net.JoinHostPort(strings.TrimSuffix(s.Host, "."), fmt.Sprint(s.Port))
}

// Advertise announces the service instance on port until ctx is done or
// the returned function is called.
func Advertise(ctx context.Context, instance string, port int, txt map[string]string) (stop func(), err error) {
	server, err := zeroconf.Register(instance, ServiceType, Domain, port, encodeTXT(txt), nil)
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", instance, err)
	}
	stopped := context.AfterFunc(ctx, server.Shutdown)
	return func() {
		if stopped() {
			server.Shutdown()
		}
	}, nil
}

// Browse collects the services announced within timeout.
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	removed := make(chan *zeroconf.ServiceEntry, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- zeroconf.Browse(ctx, ServiceType, Domain, entries, removed)
	}()

	found := make(map[string]*Service)
	done := ctx.Done()
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				entries = nil
			} else if done != nil {
				merge(found, fromEntry(e))
			}
		case e, ok := <-removed:
			if !ok {
				removed = nil
			} else if done != nil {
				delete(found, e.Instance)
			}
		case <-done:
			// Keep draining until the browser returns.
			done = nil
		case err := <-errc:
			if err != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("browsing %s: %w", ServiceType, err)
			}
			return sorted(found), nil
		}
	}
}

func fromEntry(e *zeroconf.ServiceEntry) *Service {
	return &Service{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		Addrs:    slices.Concat(e.AddrIPv4, e.AddrIPv6),
		TXT:      decodeTXT(e.Text),
	}
}

// merge adds s to found. An instance seen on several interfaces is
// reported once, with the addresses of all.
func merge(found map[string]*Service, s *Service) {
	prev, ok := found[s.Instance]
	if !ok {
		found[s.Instance] = s
		return
	}
	for _, ip := range s.Addrs {
		if !slices.ContainsFunc(prev.Addrs, ip.Equal) {
			prev.Addrs = append(prev.Addrs, ip)
		}
	}
}

func sorted(found map[string]*Service) []Service {
	list := make([]Service, 0, len(found))
	for _, s := range found {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Instance < list[j].Instance })
	return list
}

func encodeTXT(m map[string]string) []string {
	txt := make([]string, 0, len(m))
	for k, v := range m {
		txt = append(txt, k+"="+v)
	}
	sort.Strings(txt)
	return txt
}

func decodeTXT(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, kv := range txt {
		k, v, _ := strings.Cut(kv, "=")
		m[k] = v
	}
	return m
}
