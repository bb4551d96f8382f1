package register

// ET112Dynamic returns the mandatory dynamic register catalogue for the
// Carlo-Gavazzi ET112, as specified in the wire contract: address,
// width, scale, unit, description. These are polled every cycle.
func ET112Dynamic() []Definition {
	return []Definition{
		{Address: 0, Kind: Int32, Scale: 0.1, Unit: UnitVolt, Description: "Voltage", Dynamic: true},
		{Address: 2, Kind: Int32, Scale: 0.001, Unit: UnitAmp, Description: "Current", Dynamic: true},
		{Address: 4, Kind: Int32, Scale: 0.1, Unit: UnitWatt, Description: "Active power", Dynamic: true},
		{Address: 6, Kind: Int32, Scale: 0.1, Unit: UnitVoltAmp, Description: "Apparent power", Dynamic: true},
		{Address: 8, Kind: Int32, Scale: 0.1, Unit: UnitVar, Description: "Reactive power", Dynamic: true},
		{Address: 10, Kind: Int32, Scale: 0.1, Unit: UnitWatt, Description: "Demand", Dynamic: true},
		{Address: 12, Kind: Int32, Scale: 0.1, Unit: UnitWatt, Description: "Demand peak", Dynamic: true},
		{Address: 14, Kind: Int16, Scale: 0.001, Unit: UnitPowerFactor, Description: "Power factor", Dynamic: true},
		{Address: 15, Kind: Int16, Scale: 0.1, Unit: UnitHertz, Description: "Frequency", Dynamic: true},
		{Address: 16, Kind: Int32, Scale: 0.1, Unit: UnitKWh, Description: "Import energy", Dynamic: true},
		{Address: 18, Kind: Int32, Scale: 0.1, Unit: UnitKVArh, Description: "Import reactive energy", Dynamic: true},
		{Address: 20, Kind: Int32, Scale: 0.1, Unit: UnitKWh, Description: "Partial import", Dynamic: true},
		{Address: 22, Kind: Int32, Scale: 0.1, Unit: UnitKVArh, Description: "Partial reactive import", Dynamic: true},
		{Address: 32, Kind: Int32, Scale: 0.1, Unit: UnitKWh, Description: "Export energy", Dynamic: true},
		{Address: 34, Kind: Int32, Scale: 0.1, Unit: UnitKVArh, Description: "Export reactive energy", Dynamic: true},
	}
}

// ET112Static returns the static register catalogue: polled until first
// successful fetch, then cached for the process lifetime.
func ET112Static() []Definition {
	defs := []Definition{
		{Address: 11, Kind: Int16, Scale: 1, Description: "Identification code"},
		{Address: 770, Kind: Uint16, Scale: 1, Description: "Version"},
		{Address: 771, Kind: Uint16, Scale: 1, Description: "Revision"},
		{Address: 4112, Kind: Uint32, Scale: 1, Description: "Demand integration time"},
		{Address: 4355, Kind: Int16, Scale: 1, Description: "Measurement mode"},
		{Address: 8193, Kind: Uint16, Scale: 1, Description: "RS-485 baud-rate code"},
	}
	// Serial number occupies seven consecutive 16-bit words, 20480..20486.
	for a := uint16(20480); a <= 20486; a++ {
		defs = append(defs, Definition{Address: a, Kind: Uint16, Scale: 1, Description: "Serial number word"})
	}
	return defs
}

// ET112 builds the complete backend Model: dynamic plus static
// registers.
func ET112() *Model {
	defs := append(ET112Dynamic(), ET112Static()...)
	return NewModel(defs)
}

// BaudRateCode maps the RS-485 baud-rate register's raw value (1..5) to
// the line rate in bits per second, as specified for the ET112.
var BaudRateCode = map[uint16]int{
	1: 9600,
	2: 19200,
	3: 38400,
	4: 57600,
	5: 115200,
}
