// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package output_test

import (
	"bytes"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/ironcore-dev/server-scanner/bmc"
	"github.com/ironcore-dev/server-scanner/internal/api/inventory"
	"github.com/ironcore-dev/server-scanner/internal/cluster"
	"github.com/ironcore-dev/server-scanner/internal/output"
)

func sampleInventory() inventory.Inventory {
	return inventory.Inventory{
		Zones: []inventory.ZoneData{
			{
				Zone: "zone-a",
				Vendors: map[inventory.Vendor][]inventory.ServerInfo{
					inventory.VendorDell: {
						{Name: "ocp4-hypershift-zone-a-02", Vendor: inventory.VendorDell, Zone: "zone-a", Status: inventory.StatusAvailable},
					},
					inventory.VendorHP: {
						{Name: "ocp4-hypershift-zone-a-03", Vendor: inventory.VendorHP, Zone: "zone-a", Status: inventory.StatusAvailable},
						{Name: "ocp4-hypershift-zone-a-01", Vendor: inventory.VendorHP, Zone: "zone-a", Status: inventory.StatusInstalled, Cluster: "prod"},
					},
				},
			},
			{
				Zone: inventory.UnknownZone,
				Vendors: map[inventory.Vendor][]inventory.ServerInfo{
					inventory.VendorCisco: {
						{Name: "ocp4-hypershift", Vendor: inventory.VendorCisco, Status: inventory.StatusAvailable},
					},
				},
			},
		},
		Duplicates: map[string][]inventory.Vendor{
			"ocp4-hypershift-zone-a-01": {inventory.VendorHP, inventory.VendorDell},
		},
		Summary: inventory.Summary{TotalProfiles: 4, TotalAvailable: 3, TotalInstalled: 1, TotalZoneless: 1},
		Errors: []inventory.SourceError{
			{Kind: inventory.SourceKindCluster, Source: "lab", Reason: inventory.ReasonUnauthorized, Message: "token expired"},
		},
	}
}

var _ = Describe("Output", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	DescribeTable("parses formats",
		func(name string, expected output.Format) {
			f, err := output.ParseFormat(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(f).To(Equal(expected))
		},
		Entry("default", "", output.FormatList),
		Entry("table", "table", output.FormatTable),
		Entry("upper case json", "JSON", output.FormatJSON),
		Entry("yaml", "yaml", output.FormatYAML),
	)

	It("should reject unknown formats", func() {
		_, err := output.ParseFormat("xml")
		Expect(err).To(MatchError(ContainSubstring("unknown output format")))
	})

	It("should list servers grouped by zone and vendor", func() {
		p := output.NewPrinter(buf, output.FormatList)
		p.ShowDuplicates = true
		Expect(p.PrintInventory(sampleInventory())).To(Succeed())
		out := buf.String()

		Expect(out).To(ContainSubstring("Zone: zone-a"))
		Expect(out).To(ContainSubstring("Unknown Zone:"))
		Expect(out).To(ContainSubstring("    - ocp4-hypershift-zone-a-01 (installed in prod)\n"))
		Expect(out).To(ContainSubstring("Total: 4 profiles, 3 available, 1 installed, 1 without zone"))
		Expect(out).To(ContainSubstring("  - ocp4-hypershift-zone-a-01 exists in: HP, DELL"))
		Expect(out).To(ContainSubstring("  - cluster lab: Unauthorized (token expired)"))

		// vendors in canonical order, servers sorted by name
		Expect(out).To(MatchRegexp(`(?s)HP:.*zone-a-01.*zone-a-03.*DELL:.*zone-a-02`))
	})

	It("should omit duplicates unless requested", func() {
		Expect(output.NewPrinter(buf, output.FormatTable).PrintInventory(sampleInventory())).To(Succeed())
		Expect(buf.String()).NotTo(ContainSubstring("Duplicate"))
	})

	It("should report empty inventories", func() {
		Expect(output.NewPrinter(buf, output.FormatList).PrintInventory(inventory.Inventory{})).To(Succeed())
		Expect(buf.String()).To(HavePrefix("No servers found matching the pattern."))
	})

	It("should render a table", func() {
		Expect(output.NewPrinter(buf, output.FormatTable).PrintInventory(sampleInventory())).To(Succeed())
		lines := bytes.Split(buf.Bytes(), []byte("\n"))
		Expect(string(lines[0])).To(MatchRegexp(`^ZONE\s+VENDOR\s+SERVER NAME\s+STATUS\s+CLUSTER$`))
		Expect(string(lines[1])).To(MatchRegexp(`^zone-a\s+HP\s+ocp4-hypershift-zone-a-01\s+installed\s+prod$`))
		Expect(string(lines[2])).To(MatchRegexp(`^\s+HP\s+ocp4-hypershift-zone-a-03\s+available\s+-$`))
		Expect(string(lines[4])).To(MatchRegexp(`^\(unknown\)\s+CISCO\s+ocp4-hypershift\s+available\s+-$`))
	})

	It("should encode JSON", func() {
		Expect(output.NewPrinter(buf, output.FormatJSON).PrintInventory(sampleInventory())).To(Succeed())
		var decoded map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("zones"))
		Expect(decoded["summary"]).To(HaveKeyWithValue("totalProfiles", BeNumerically("==", 4)))
	})

	It("should encode YAML with the JSON field names", func() {
		Expect(output.NewPrinter(buf, output.FormatYAML).PrintInventory(sampleInventory())).To(Succeed())
		var decoded map[string]any
		Expect(yaml.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded["summary"]).To(HaveKeyWithValue("totalInstalled", 1))
		Expect(buf.String()).To(ContainSubstring("  totalProfiles: 4"))
	})

	It("should print servers", func() {
		servers := []inventory.ServerInfo{{
			Name: "ocp4-hypershift-zone-a-01", Vendor: inventory.VendorHP, Zone: "zone-a",
			Status: inventory.StatusAvailable, MACAddress: "aa:bb:cc:dd:ee:ff", BMCAddress: "10.0.0.1",
		}}
		Expect(output.NewPrinter(buf, output.FormatList).PrintServers(servers)).To(Succeed())
		Expect(buf.String()).To(MatchRegexp(`ocp4-hypershift-zone-a-01\s+HP\s+zone-a\s+available\s+-\s+aa:bb:cc:dd:ee:ff\s+10.0.0.1\s+-`))
	})

	It("should print zones", func() {
		Expect(output.NewPrinter(buf, output.FormatList).PrintZones([]string{"zone-a", "zone-b"})).To(Succeed())
		Expect(buf.String()).To(Equal("zone-a\nzone-b\n"))

		buf.Reset()
		Expect(output.NewPrinter(buf, output.FormatJSON).PrintZones([]string{"zone-a"})).To(Succeed())
		Expect(buf.String()).To(MatchJSON(`{"zones":["zone-a"]}`))
	})

	It("should print clusters", func() {
		Expect(output.NewPrinter(buf, output.FormatTable).PrintClusters([]inventory.ClusterStats{
			{ClusterName: "prod", InstalledCount: 2, Reachable: true},
		})).To(Succeed())
		Expect(buf.String()).To(MatchRegexp(`prod\s+true\s+2`))
	})

	It("should print cluster health", func() {
		Expect(output.NewPrinter(buf, output.FormatTable).PrintHealth([]cluster.Health{
			{Cluster: "prod", Reachable: true, CRD: "agents.agent-install.openshift.io", ServedVersions: []string{"v1beta1"}, Records: 3},
			{Cluster: "lab", CRD: "agents.agent-install.openshift.io", Reason: inventory.ReasonUnreachable, Message: "dial tcp: timeout"},
		})).To(Succeed())
		Expect(buf.String()).To(MatchRegexp(`prod\s+true\s+agents.agent-install.openshift.io\s+v1beta1\s+3\s+-`))
		Expect(buf.String()).To(MatchRegexp(`lab\s+false\s+agents.agent-install.openshift.io\s+-\s+0\s+Unreachable: dial tcp: timeout`))
	})

	It("should describe servers with their BMC systems", func() {
		d := output.Description{
			Servers: []inventory.ServerInfo{{Name: "ocp4-hypershift-zone-a-01", Vendor: inventory.VendorHP, Status: inventory.StatusAvailable, BMCAddress: "10.0.0.1"}},
			Probes: []output.BMCSystems{
				{Server: "ocp4-hypershift-zone-a-01", BMC: "10.0.0.1", Systems: []bmc.SystemInfo{{
					SerialNumber: "CZ123", Manufacturer: "HPE", Model: "ProLiant DL360",
					PowerState: "On", Health: "OK", TotalSystemMemory: resource.MustParse("512Gi"),
				}}},
				{Server: "ocp4-hypershift-zone-a-01", BMC: "10.0.0.2", Error: "connection refused"},
			},
		}
		Expect(output.NewPrinter(buf, output.FormatList).PrintDescription(d)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("BMC 10.0.0.1 of ocp4-hypershift-zone-a-01:"))
		Expect(buf.String()).To(MatchRegexp(`CZ123\s+HPE\s+ProLiant DL360\s+On\s+OK\s+512Gi\s+-`))
		Expect(buf.String()).To(ContainSubstring("  probe failed: connection refused"))

		buf.Reset()
		Expect(output.NewPrinter(buf, output.FormatJSON).PrintDescription(d)).To(Succeed())
		var decoded map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded).To(HaveKey("servers"))
		Expect(decoded["probes"]).To(HaveLen(2))
	})
})
