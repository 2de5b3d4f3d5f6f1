// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package output renders inventories for the command line.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ironcore-dev/server-scanner/bmc"
	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
)

// Format is an output format.
type Format string

const (
	FormatList  Format = "list"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists all supported formats.
var Formats = []Format{FormatList, FormatTable, FormatJSON, FormatYAML}

// ParseFormat parses the name of an output format. An empty name selects
// FormatList.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatList, nil
	}
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown output format %q, must be one of %v", s, Formats)
	}
	return f, nil
}

const (
	noServers = "No servers found matching the pattern."
	rule      = "============================================================"
)

// Printer writes inventories in one format.
type Printer struct {
	Out    io.Writer
	Format Format
	// ShowDuplicates appends the names reported by several vendors to list
	// and table output.
	ShowDuplicates bool
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer, format Format) *Printer {
	return &Printer{Out: out, Format: format}
}

// PrintInventory writes the zones of inv. The list and table formats append
// the totals and source errors.
func (p *Printer) PrintInventory(inv inventory.Inventory) error {
	switch p.Format {
	case FormatJSON:
		return p.json(inv)
	case FormatYAML:
		return p.yaml(inv)
	case FormatTable:
		return p.inventoryTable(inv)
	default:
		return p.inventoryList(inv)
	}
}

// PrintServers writes single servers, e.g. the result of a describe.
func (p *Printer) PrintServers(servers []inventory.ServerInfo) error {
	switch p.Format {
	case FormatJSON:
		return p.json(servers)
	case FormatYAML:
		return p.yaml(servers)
	}

	w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVENDOR\tZONE\tSTATUS\tCLUSTER\tMAC\tBMC\tMODEL")
	for _, s := range servers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name, s.Vendor, orDash(s.Zone), s.Status, orDash(s.Cluster),
			orDash(s.MACAddress), orDash(s.BMCAddress), orDash(s.Model))
	}
	return w.Flush()
}

// PrintZones writes zone names.
func (p *Printer) PrintZones(zones []string) error {
	switch p.Format {
	case FormatJSON:
		return p.json(map[string][]string{"zones": zones})
	case FormatYAML:
		return p.yaml(map[string][]string{"zones": zones})
	}
	for _, z := range zones {
		if _, err := fmt.Fprintln(p.Out, z); err != nil {
			return err
		}
	}
	return nil
}

// PrintClusters writes per-cluster statistics.
func (p *Printer) PrintClusters(clusters []inventory.ClusterStats) error {
	switch p.Format {
	case FormatJSON:
		return p.json(clusters)
	case FormatYAML:
		return p.yaml(clusters)
	}
	w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLUSTER\tREACHABLE\tINSTALLED")
	for _, c := range clusters {
		_, _ = fmt.Fprintf(w, "%s\t%t\t%d\n", c.ClusterName, c.Reachable, c.InstalledCount)
	}
	return w.Flush()
}

// PrintHealth writes the results of a cluster health check.
func (p *Printer) PrintHealth(health []cluster.Health) error {
	switch p.Format {
	case FormatJSON:
		return p.json(health)
	case FormatYAML:
		return p.yaml(health)
	}
	w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLUSTER\tREACHABLE\tCRD\tVERSIONS\tRECORDS\tMESSAGE")
	for _, h := range health {
		message := h.Message
		if h.Reason != "" {
			message = string(h.Reason) + ": " + message
		}
		_, _ = fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\t%s\n", h.Cluster, h.Reachable, h.CRD,
			orDash(strings.Join(h.ServedVersions, ",")), h.Records, orDash(message))
	}
	return w.Flush()
}

// BMCSystems are the systems reported by the BMC of a server.
type BMCSystems struct {
	Server  string           `json:"server"`
	BMC     string           `json:"bmc"`
	Systems []bmc.SystemInfo `json:"systems,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// Description is the result of a describe, optionally with BMC probes.
type Description struct {
	Servers []inventory.ServerInfo `json:"servers"`
	Probes  []BMCSystems           `json:"probes,omitempty"`
}

// PrintDescription writes the servers of d followed by their probes.
func (p *Printer) PrintDescription(d Description) error {
	switch p.Format {
	case FormatJSON:
		return p.json(d)
	case FormatYAML:
		return p.yaml(d)
	}
	if err := p.PrintServers(d.Servers); err != nil {
		return err
	}
	for _, probe := range d.Probes {
		if _, err := fmt.Fprintf(p.Out, "\nBMC %s of %s:\n", probe.BMC, probe.Server); err != nil {
			return err
		}
		if probe.Error != "" {
			if _, err := fmt.Fprintf(p.Out, "  probe failed: %s\n", probe.Error); err != nil {
				return err
			}
			continue
		}
		w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  SERIAL\tMANUFACTURER\tMODEL\tPOWER\tHEALTH\tMEMORY\tBIOS")
		for _, s := range probe.Systems {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\n", orDash(s.SerialNumber), orDash(s.Manufacturer),
				orDash(s.Model), orDash(string(s.PowerState)), orDash(s.Health), s.TotalSystemMemory.String(), orDash(s.BIOSVersion))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// PrintErrors writes source errors.
func (p *Printer) PrintErrors(errs []inventory.SourceError) error {
	switch p.Format {
	case FormatJSON:
		return p.json(map[string][]inventory.SourceError{"errors": errs})
	case FormatYAML:
		return p.yaml(map[string][]inventory.SourceError{"errors": errs})
	}
	return p.errorList(errs)
}

func (p *Printer) inventoryList(inv inventory.Inventory) error {
	var b strings.Builder
	if len(inv.Zones) == 0 {
		b.WriteString(noServers + "\n")
	}
	for _, z := range inv.Zones {
		title := "Zone: " + z.Zone
		if z.Zone == inventory.UnknownZone {
			title = "Unknown Zone:"
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", title, rule)
		for _, v := range vendorsOf(z) {
			fmt.Fprintf(&b, "\n  %s:\n", v)
			for _, s := range sortedServers(z.Vendors[v]) {
				fmt.Fprintf(&b, "    - %s%s\n", s.Name, installedSuffix(s))
			}
		}
	}
	if _, err := io.WriteString(p.Out, b.String()); err != nil {
		return err
	}
	return p.footer(inv)
}

func (p *Printer) inventoryTable(inv inventory.Inventory) error {
	w := tabwriter.NewWriter(p.Out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ZONE\tVENDOR\tSERVER NAME\tSTATUS\tCLUSTER")
	for _, z := range inv.Zones {
		first := true
		for _, v := range vendorsOf(z) {
			for _, s := range sortedServers(z.Vendors[v]) {
				zoneCol := ""
				if first {
					zoneCol = z.Zone
					first = false
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", zoneCol, v, s.Name, s.Status, orDash(s.Cluster))
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(inv.Zones) == 0 {
		if _, err := fmt.Fprintln(p.Out, noServers); err != nil {
			return err
		}
	}
	return p.footer(inv)
}

func (p *Printer) footer(inv inventory.Inventory) error {
	s := inv.Summary
	if _, err := fmt.Fprintf(p.Out, "\nTotal: %d profiles, %d available, %d installed, %d without zone\n",
		s.TotalProfiles, s.TotalAvailable, s.TotalInstalled, s.TotalZoneless); err != nil {
		return err
	}
	if p.ShowDuplicates {
		if err := p.duplicates(inv.Duplicates); err != nil {
			return err
		}
	}
	return p.errorList(inv.Errors)
}

func (p *Printer) duplicates(duplicates map[string][]inventory.Vendor) error {
	if len(duplicates) == 0 {
		_, err := fmt.Fprintln(p.Out, "\nNo duplicate server names found.")
		return err
	}
	names := slices.Sorted(maps.Keys(duplicates))
	if _, err := fmt.Fprintf(p.Out, "\nDuplicate server names (%d):\n", len(names)); err != nil {
		return err
	}
	for _, name := range names {
		vendors := make([]string, 0, len(duplicates[name]))
		for _, v := range duplicates[name] {
			vendors = append(vendors, string(v))
		}
		if _, err := fmt.Fprintf(p.Out, "  - %s exists in: %s\n", name, strings.Join(vendors, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) errorList(errs []inventory.SourceError) error {
	if len(errs) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(p.Out, "\nErrors (%d):\n", len(errs)); err != nil {
		return err
	}
	for _, e := range errs {
		if _, err := fmt.Fprintf(p.Out, "  - %s %s: %s (%s)\n", e.Kind, e.Source, e.Reason, e.Message); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) json(v any) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// yaml renders v with the field names of its JSON encoding.
func (p *Printer) yaml(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.Out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// vendorsOf returns the vendors of a zone in canonical order.
func vendorsOf(z inventory.ZoneData) []inventory.Vendor {
	var vendors []inventory.Vendor
	for _, v := range inventory.Vendors {
		if len(z.Vendors[v]) > 0 {
			vendors = append(vendors, v)
		}
	}
	return vendors
}

func sortedServers(servers []inventory.ServerInfo) []inventory.ServerInfo {
	return slices.SortedStableFunc(slices.Values(servers), func(a, b inventory.ServerInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
}

func installedSuffix(s inventory.ServerInfo) string {
	if s.Status != inventory.StatusInstalled {
		return ""
	}
	return " (installed in " + s.Cluster + ")"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
