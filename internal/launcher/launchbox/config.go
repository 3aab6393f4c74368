package launchbox

import (
	"encoding/xml"
	"sort"

	"github.com/spf13/afero"

	ifdoc "github.com/retronian/fil/internal/doc"
)

// platformsConfigDoc is Data/Platforms.xml: declares, per platform,
// which media-type folder (Box - Front, Screenshot - Gameplay, ...)
// maps to which physical directory under Images/<platform>/.
type platformsConfigDoc struct {
	path    string
	folders map[string]PlatformFolder // keyed by "Platform|MediaType"
}

func newPlatformsConfigDoc(path string) *platformsConfigDoc {
	return &platformsConfigDoc{path: path, folders: make(map[string]PlatformFolder)}
}

func (d *platformsConfigDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Config, Name: "Platforms"}
}
func (d *platformsConfigDoc) Finalize() error { return nil }

func (d *platformsConfigDoc) EnsureFolder(platform, mediaType, folderPath string) {
	key := platform + "|" + mediaType
	if _, ok := d.folders[key]; ok {
		return
	}
	d.folders[key] = PlatformFolder{MediaType: mediaType, FolderPath: folderPath, Platform: platform}
}

func readPlatformsConfigDoc(fs afero.Fs, path string) (*platformsConfigDoc, error) {
	d := newPlatformsConfigDoc(path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return d, nil
	}
	err = ifdoc.ReadXMLDocument(fs, path, "Platforms", "LaunchBox", map[string]func(*xml.Decoder, xml.StartElement) error{
		"PlatformFolder": func(dec *xml.Decoder, start xml.StartElement) error {
			var mediaType, folderPath, platform string
			known := map[string]*string{"MediaType": &mediaType, "FolderPath": &folderPath, "Platform": &platform}
			if _, err := ifdoc.DecodeItemFields(dec, start, known); err != nil {
				return err
			}
			d.EnsureFolder(platform, mediaType, folderPath)
			return nil
		},
		"Platform": func(dec *xml.Decoder, start xml.StartElement) error {
			return dec.Skip()
		},
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func writePlatformsConfigDoc(fs afero.Fs, d *platformsConfigDoc) error {
	keys := make([]string, 0, len(d.folders))
	for k := range d.folders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return ifdoc.WriteXMLDocument(fs, d.path, "Platforms", "LaunchBox", func(enc *xml.Encoder) error {
		for _, k := range keys {
			f := d.folders[k]
			fields := []ifdoc.EncodeItemField{
				{Tag: "MediaType", Value: f.MediaType},
				{Tag: "FolderPath", Value: f.FolderPath},
				{Tag: "Platform", Value: f.Platform},
			}
			if err := ifdoc.EncodeItem(enc, "PlatformFolder", fields, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// parentsDoc is Data/Parents.xml: nests Flashpoint's imported platforms
// and playlists under fixed "Flashpoint Platforms"/"Flashpoint
// Playlists" categories so they appear grouped in LaunchBox's UI
// (lb-install.h's MAIN_PLATFORM_CATEGORY/PLATFORMS_PLATFORM_CATEGORY
// constants).
type parentsDoc struct {
	path       string
	categories map[string]PlatformCategory
	parents    []Parent
}

const (
	mainPlatformCategory           = "Flashpoint"
	platformsPlatformCategory      = "Flashpoint Platforms"
	platformsPlatformCategoryNest  = "Platforms"
	playlistsPlatformCategory      = "Flashpoint Playlists"
	playlistsPlatformCategoryNest  = "Playlists"
)

func newParentsDoc(path string) *parentsDoc {
	return &parentsDoc{
		path: path,
		categories: map[string]PlatformCategory{
			mainPlatformCategory:      {Name: mainPlatformCategory},
			platformsPlatformCategory: {Name: platformsPlatformCategory, NestedName: platformsPlatformCategoryNest},
			playlistsPlatformCategory: {Name: playlistsPlatformCategory, NestedName: playlistsPlatformCategoryNest},
		},
	}
}

func (d *parentsDoc) Identifier() ifdoc.Identifier {
	return ifdoc.Identifier{Type: ifdoc.Config, Name: "Parents"}
}
func (d *parentsDoc) Finalize() error { return nil }

func (d *parentsDoc) AddPlatformParent(platformName string) {
	d.addParentIfAbsent(Parent{PlatformCategoryName: platformsPlatformCategory, PlatformName: platformName, ParentPlatformCategoryName: mainPlatformCategory})
}

func (d *parentsDoc) AddPlaylistParent(playlistID string) {
	d.addParentIfAbsent(Parent{PlatformCategoryName: playlistsPlatformCategory, PlaylistID: playlistID, ParentPlatformCategoryName: mainPlatformCategory})
}

func (d *parentsDoc) addParentIfAbsent(p Parent) {
	for _, existing := range d.parents {
		if existing == p {
			return
		}
	}
	d.parents = append(d.parents, p)
}

func readParentsDoc(fs afero.Fs, path string) (*parentsDoc, error) {
	d := newParentsDoc(path)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return d, nil
	}
	err = ifdoc.ReadXMLDocument(fs, path, "Parents", "LaunchBox", map[string]func(*xml.Decoder, xml.StartElement) error{
		"Parent": func(dec *xml.Decoder, start xml.StartElement) error {
			var categoryName, platformName, parentCategoryName, playlistID string
			known := map[string]*string{
				"PlatformCategoryName":       &categoryName,
				"PlatformName":               &platformName,
				"ParentPlatformCategoryName": &parentCategoryName,
				"PlaylistId":                 &playlistID,
			}
			if _, err := ifdoc.DecodeItemFields(dec, start, known); err != nil {
				return err
			}
			d.addParentIfAbsent(Parent{categoryName, platformName, parentCategoryName, playlistID})
			return nil
		},
		"PlatformCategory": func(dec *xml.Decoder, start xml.StartElement) error { return dec.Skip() },
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func writeParentsDoc(fs afero.Fs, d *parentsDoc) error {
	names := make([]string, 0, len(d.categories))
	for n := range d.categories {
		names = append(names, n)
	}
	sort.Strings(names)
	return ifdoc.WriteXMLDocument(fs, d.path, "Parents", "LaunchBox", func(enc *xml.Encoder) error {
		for _, n := range names {
			c := d.categories[n]
			fields := []ifdoc.EncodeItemField{{Tag: "Name", Value: c.Name}, {Tag: "NestedName", Value: c.NestedName}}
			if err := ifdoc.EncodeItem(enc, "PlatformCategory", fields, nil); err != nil {
				return err
			}
		}
		for _, p := range d.parents {
			fields := []ifdoc.EncodeItemField{
				{Tag: "PlatformCategoryName", Value: p.PlatformCategoryName},
				{Tag: "PlatformName", Value: p.PlatformName},
				{Tag: "ParentPlatformCategoryName", Value: p.ParentPlatformCategoryName},
				{Tag: "PlaylistId", Value: p.PlaylistID},
			}
			if err := ifdoc.EncodeItem(enc, "Parent", fields, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
