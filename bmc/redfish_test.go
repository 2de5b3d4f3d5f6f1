// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package bmc

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stmcginnis/gofish/schemas"
	"k8s.io/apimachinery/pkg/api/resource"
)

var redfishResources = map[string]string{
	"/redfish/v1": `{
		"@odata.id": "/redfish/v1/",
		"Id": "RootService",
		"Name": "Root Service",
		"RedfishVersion": "1.11.0",
		"Systems": {"@odata.id": "/redfish/v1/Systems"}
	}`,
	"/redfish/v1/Systems": `{
		"@odata.id": "/redfish/v1/Systems",
		"Name": "Computer System Collection",
		"Members@odata.count": 1,
		"Members": [{"@odata.id": "/redfish/v1/Systems/1"}]
	}`,
	"/redfish/v1/Systems/1": `{
		"@odata.id": "/redfish/v1/Systems/1",
		"Id": "1",
		"Name": "System",
		"UUID": "38947555-7742-3448-3784-823347823834",
		"HostName": "ocp4-hypershift-zone-a-01",
		"Manufacturer": "HPE",
		"Model": "ProLiant DL380 Gen10",
		"SerialNumber": "CZ1234",
		"BiosVersion": "U30 v2.80",
		"PowerState": "On",
		"Status": {"State": "Enabled", "Health": "OK"},
		"MemorySummary": {"TotalSystemMemoryGiB": 256}
	}`,
}

func newRedfishServer(username, password string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if r.URL.Path != "/redfish/v1/" && (!ok || user != username || pass != password) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, found := redfishResources[strings.TrimSuffix(r.URL.Path, "/")]
		if !found {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

var _ = Describe("Redfish", func() {
	var server *httptest.Server

	BeforeEach(func() {
		server = newRedfishServer("admin", "secret")
		DeferCleanup(server.Close)
	})

	It("should read the managed systems", func(ctx SpecContext) {
		systems, err := Probe(ctx, Options{
			Endpoint:  server.URL,
			Username:  "admin",
			Password:  "secret",
			BasicAuth: true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(systems).To(HaveLen(1))

		system := systems[0]
		Expect(system.URI).To(Equal("/redfish/v1/Systems/1"))
		Expect(system.HostName).To(Equal("ocp4-hypershift-zone-a-01"))
		Expect(system.Manufacturer).To(Equal("HPE"))
		Expect(system.SerialNumber).To(Equal("CZ1234"))
		Expect(system.BIOSVersion).To(Equal("U30 v2.80"))
		Expect(system.PowerState).To(Equal(schemas.OnPowerState))
		Expect(system.Health).To(Equal("OK"))
		Expect(system.TotalSystemMemory.Equal(resource.MustParse("256Gi"))).To(BeTrue())
	})

	It("should fail with wrong credentials", func(ctx SpecContext) {
		_, err := Probe(ctx, Options{
			Endpoint:  server.URL,
			Username:  "admin",
			Password:  "wrong",
			BasicAuth: true,
		})
		Expect(err).To(HaveOccurred())
	})

	It("should fail if the BMC is unreachable", func(ctx SpecContext) {
		_, err := Probe(ctx, Options{
			Endpoint:  "http://127.0.0.1:1",
			Username:  "admin",
			Password:  "secret",
			BasicAuth: true,
		})
		Expect(err).To(MatchError(ContainSubstring("failed to connect to BMC")))
	})
})
