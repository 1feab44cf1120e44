package model

// Config is the complete configuration graph. Slice order is index order for
// every codec.
type Config struct {
	Settings   Settings
	RadioIDs   []*RadioID
	Contacts   []*Contact
	GroupLists []*GroupList
	Channels   []*Channel
	Zones      []*Zone
	ScanLists  []*ScanList
	GPSSystems []*GPSSystem
}

// NewConfig returns an empty configuration
func NewConfig() *Config {
	return &Config{}
}

// DefaultRadioID returns the first radio ID or nil
func (c *Config) DefaultRadioID() *RadioID {
	if len(c.RadioIDs) == 0 {
		return nil
	}
	return c.RadioIDs[0]
}

// FindChannel returns the first channel with the given name
func (c *Config) FindChannel(name string) *Channel {
	for _, ch := range c.Channels {
		if ch.Name == name {
			return ch
		}
	}
	return nil
}

// FindContact returns the first contact with the given name
func (c *Config) FindContact(name string) *Contact {
	for _, ct := range c.Contacts {
		if ct.Name == name {
			return ct
		}
	}
	return nil
}

// RemoveChannel deletes a channel and every reference to it
func (c *Config) RemoveChannel(ch *Channel) {
	c.Channels = removeRef(c.Channels, ch)
	for _, z := range c.Zones {
		z.A = removeRef(z.A, ch)
		z.B = removeRef(z.B, ch)
	}
	for _, sl := range c.ScanLists {
		sl.Channels = removeRef(sl.Channels, ch)
		if sl.Primary == ch {
			sl.Primary = nil
		}
		if sl.Secondary == ch {
			sl.Secondary = nil
		}
		if sl.Revert == ch {
			sl.Revert = nil
		}
	}
	for _, g := range c.GPSSystems {
		if g.RevertChannel == ch {
			g.RevertChannel = nil
		}
	}
}

// RemoveContact deletes a contact and every reference to it
func (c *Config) RemoveContact(ct *Contact) {
	c.Contacts = removeRef(c.Contacts, ct)
	for _, gl := range c.GroupLists {
		gl.Contacts = removeRef(gl.Contacts, ct)
	}
	for _, ch := range c.Channels {
		if ch.TXContact == ct {
			ch.TXContact = nil
		}
	}
	for _, g := range c.GPSSystems {
		if g.Contact == ct {
			g.Contact = nil
		}
	}
}

// RemoveGroupList deletes a group list and clears channel references
func (c *Config) RemoveGroupList(gl *GroupList) {
	c.GroupLists = removeRef(c.GroupLists, gl)
	for _, ch := range c.Channels {
		if ch.GroupList == gl {
			ch.GroupList = nil
		}
	}
}

// RemoveScanList deletes a scan list and clears channel references
func (c *Config) RemoveScanList(sl *ScanList) {
	c.ScanLists = removeRef(c.ScanLists, sl)
	for _, ch := range c.Channels {
		if ch.ScanList == sl {
			ch.ScanList = nil
		}
	}
}

// RemoveGPSSystem deletes a positioning system and clears channel references
func (c *Config) RemoveGPSSystem(g *GPSSystem) {
	c.GPSSystems = removeRef(c.GPSSystems, g)
	for _, ch := range c.Channels {
		if ch.GPSSystem == g {
			ch.GPSSystem = nil
		}
	}
}

// RemoveZone deletes a zone
func (c *Config) RemoveZone(z *Zone) {
	c.Zones = removeRef(c.Zones, z)
}

func removeRef[T any](list []*T, obj *T) []*T {
	out := list[:0]
	for _, v := range list {
		if v != obj {
			out = append(out, v)
		}
	}
	for i := len(out); i < len(list); i++ {
		list[i] = nil
	}
	return out
}
