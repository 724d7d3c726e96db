package discovery

import "testing"

const announcement = "NOTIFY * HTTP/1.1\r\n" +
	"HOST: 239.255.255.250:1990\r\n" +
	"Server: Buildroot/2018.02-rc3 UPnP/1.0 ssdpd/1.8\r\n" +
	"Date: Mon, 06 Jan 2025 12:00:00 GMT\r\n" +
	"Location: 192.168.1.77\r\n" +
	"NT: urn:bambulab-com:device:3dprinter:1\r\n" +
	"USN: 01S00C123400001\r\n" +
	"Cache-Control: max-age=1800\r\n" +
	"DevModel.bambu.com: C12\r\n" +
	"DevName.bambu.com: Workshop-P1S\r\n" +
	"DevSignal.bambu.com: -44\r\n" +
	"DevConnect.bambu.com: lan\r\n" +
	"\r\n"

func TestParseAnnouncement(t *testing.T) {
	dev, ok := ParseAnnouncement(announcement)
	if !ok {
		t.Fatal("announcement not recognized")
	}

	if dev.Serial != "01S00C123400001" {
		t.Errorf("Serial: got %q", dev.Serial)
	}
	if dev.Address != "192.168.1.77" {
		t.Errorf("Address: got %q", dev.Address)
	}
	if dev.Name != "Workshop-P1S" {
		t.Errorf("Name: got %q", dev.Name)
	}
	if dev.ModelCode != "C12" {
		t.Errorf("ModelCode: got %q", dev.ModelCode)
	}
	if dev.Model != "P1S" {
		t.Errorf("Model: got %q, want P1S", dev.Model)
	}
}

func TestParseAnnouncementForeignDevice(t *testing.T) {
	packet := "NOTIFY * HTTP/1.1\r\n" +
		"HOST: 239.255.255.250:1900\r\n" +
		"NT: urn:schemas-upnp-org:device:MediaRenderer:1\r\n" +
		"USN: uuid:abcd-1234\r\n" +
		"Location: http://192.168.1.20:8080/desc.xml\r\n" +
		"\r\n"

	if _, ok := ParseAnnouncement(packet); ok {
		t.Error("foreign UPnP device was accepted")
	}
}

func TestParseAnnouncementMissingSerial(t *testing.T) {
	packet := "NOTIFY * HTTP/1.1\r\n" +
		"NT: urn:bambulab-com:device:3dprinter:1\r\n" +
		"Location: 192.168.1.77\r\n" +
		"\r\n"

	if _, ok := ParseAnnouncement(packet); ok {
		t.Error("announcement without USN was accepted")
	}
}

func TestParseAnnouncementBadLocation(t *testing.T) {
	packet := "NOTIFY * HTTP/1.1\r\n" +
		"NT: urn:bambulab-com:device:3dprinter:1\r\n" +
		"USN: 01S00C123400001\r\n" +
		"Location: not-an-address\r\n" +
		"\r\n"

	if _, ok := ParseAnnouncement(packet); ok {
		t.Error("announcement with unparseable Location was accepted")
	}
}

func TestParseAnnouncementHeaderWithoutColonSuffix(t *testing.T) {
	// Some firmware emits the vendor headers without the trailing colon in
	// the header name.
	packet := "NOTIFY * HTTP/1.1\r\n" +
		"NT: urn:bambulab-com:device:3dprinter:1\r\n" +
		"USN: 01P00A987600042\r\n" +
		"Location: 192.168.1.88\r\n" +
		"DevModel.bambu.com C11\r\n" +
		"DevName.bambu.com Garage-P1P\r\n" +
		"\r\n"

	dev, ok := ParseAnnouncement(packet)
	if !ok {
		t.Fatal("announcement not recognized")
	}
	if dev.ModelCode != "C11" || dev.Model != "P1P" {
		t.Errorf("model: got code %q name %q", dev.ModelCode, dev.Model)
	}
	if dev.Name != "Garage-P1P" {
		t.Errorf("Name: got %q", dev.Name)
	}
}

func TestParseAnnouncementBareNewlines(t *testing.T) {
	// Tolerate packets that use bare \n line endings.
	packet := "NOTIFY * HTTP/1.1\n" +
		"NT: urn:bambulab-com:device:3dprinter:1\n" +
		"USN: 01X00B555500007\n" +
		"Location: 10.0.0.5\n" +
		"\n"

	dev, ok := ParseAnnouncement(packet)
	if !ok {
		t.Fatal("announcement not recognized")
	}
	if dev.Serial != "01X00B555500007" || dev.Address != "10.0.0.5" {
		t.Errorf("got %+v", dev)
	}
}

func TestModelName(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"C11", "P1P"},
		{"C12", "P1S"},
		{"C13", "X1E"},
		{"N1", "A1-Mini"},
		{"N2", "A1"},
		{"N7", "P2S"},
		{"O1D", "H2D"},
		{"H2S", "H2S"},
		{"H2C", "H2C"},
		{"3DPrinter-X1", "X1"},
		{"3DPrinter-X1-Carbon", "X1-Carbon"},
		{"BL-P001", "X1-Carbon"},
		{"", "Unknown"},
		{"definitely-not-a-printer", "Unknown"},
	}
	for _, c := range cases {
		if got := ModelName(c.code); got != c.want {
			t.Errorf("ModelName(%q): got %q, want %q", c.code, got, c.want)
		}
	}
}

func TestServiceStartStopIdempotent(t *testing.T) {
	svc := NewService(Options{})

	// Multicast bind may be unavailable in constrained environments;
	// start/stop must still behave.
	err := svc.Start()
	if err != nil {
		t.Skipf("multicast unavailable: %v", err)
	}

	// Second Start is a no-op.
	if err := svc.Start(); err != nil {
		t.Errorf("second Start: got %v", err)
	}

	svc.Stop()
	svc.Stop() // Idempotent.
	svc.Close()
}
