package esde

import (
	"encoding/xml"
	"sort"

	"github.com/spf13/afero"

	ifdoc "github.com/retronian/fil/internal/doc"
)

// systemsConfigDoc is custom_systems/es_systems.xml: declares, per
// imported platform, the system's ROM directory, the dummy file
// extension this adapter uses, and the CLIFp launch command ES-DE
// will invoke.
type systemsConfigDoc struct {
	path    string
	systems map[string]systemEntry
}

type systemEntry struct {
	Name      string
	FullName  string
	Path      string
	Extension string
	Command   string
	Platform  string
}

func newSystemsConfigDoc(path string) *systemsConfigDoc {
	return &systemsConfigDoc{path: path, systems: make(map[string]systemEntry)}
}

func (d *systemsConfigDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Config, Name: "es_systems"}
}
func (d *systemsConfigDoc) Finalize() error { return nil }

func (d *systemsConfigDoc) EnsureSystem(e systemEntry) { d.systems[e.Name] = e }

func readSystemsConfigDoc(fs afero.Fs, path string) (*systemsConfigDoc, error) {
	d := newSystemsConfigDoc(path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return d, nil
	}
	err = ifdoc.ReadXMLDocument(fs, path, "es_systems", "systemList", map[string]func(*xml.Decoder, xml.StartElement) error{
		"system": func(dec *xml.Decoder, start xml.StartElement) error {
			var name, fullName, path, extension, command, platform string
			known := map[string]*string{
				"name": &name, "fullname": &fullName, "path": &path,
				"extension": &extension, "command": &command, "platform": &platform,
			}
			if _, err := ifdoc.DecodeItemFields(dec, start, known); err != nil {
				return err
			}
			d.EnsureSystem(systemEntry{name, fullName, path, extension, command, platform})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func writeSystemsConfigDoc(fs afero.Fs, d *systemsConfigDoc) error {
	names := make([]string, 0, len(d.systems))
	for n := range d.systems {
		names = append(names, n)
	}
	sort.Strings(names)
	return ifdoc.WriteXMLDocument(fs, d.path, "es_systems", "systemList", func(enc *xml.Encoder) error {
		for _, n := range names {
			s := d.systems[n]
			fields := []ifdoc.EncodeItemField{
				{Tag: "name", Value: s.Name},
				{Tag: "fullname", Value: s.FullName},
				{Tag: "path", Value: s.Path},
				{Tag: "extension", Value: s.Extension},
				{Tag: "command", Value: s.Command},
				{Tag: "platform", Value: s.Platform},
			}
			if err := ifdoc.EncodeItem(enc, "system", fields, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
