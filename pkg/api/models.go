package api

// GasStationList is the response envelope returned by the fuel price API.
type GasStationList struct {
	Fecha             string       `json:"Fecha"`
	ListaEESSPrecio   []GasStation `json:"ListaEESSPrecio"`
	Nota              string       `json:"Nota"`
	ResultadoConsulta string       `json:"ResultadoConsulta"`
}

// GasStation is a single fuel station record as delivered by the API.
// All fields are strings; prices and coordinates use locale-formatted
// decimals (comma or dot) and may be empty.
type GasStation struct {
	CP                      string `json:"C.P."`
	Direccion               string `json:"Dirección"`
	Horario                 string `json:"Horario"`
	Latitud                 string `json:"Latitud"`
	Localidad               string `json:"Localidad"`
	Longitud                string `json:"Longitud (WGS84)"`
	Margen                  string `json:"Margen"`
	Municipio               string `json:"Municipio"`
	PrecioBiodiesel         string `json:"Precio Biodiesel"`
	PrecioBioetanol         string `json:"Precio Bioetanol"`
	PrecioGasNaturalComp    string `json:"Precio Gas Natural Comprimido"`
	PrecioGasNaturalLicuado string `json:"Precio Gas Natural Licuado"`
	PrecioGasesLicuados     string `json:"Precio Gases licuados del petróleo"`
	PrecioGasoleoA          string `json:"Precio Gasoleo A"`
	PrecioGasoleoB          string `json:"Precio Gasoleo B"`
	PrecioGasoleoPremium    string `json:"Precio Gasoleo Premium"`
	PrecioGasolina95E10     string `json:"Precio Gasolina 95 E10"`
	PrecioGasolina95E5      string `json:"Precio Gasolina 95 E5"`
	PrecioGasolina95E5Prem  string `json:"Precio Gasolina 95 E5 Premium"`
	PrecioGasolina98E10     string `json:"Precio Gasolina 98 E10"`
	PrecioGasolina98E5      string `json:"Precio Gasolina 98 E5"`
	PrecioHidrogeno         string `json:"Precio Hidrogeno"`
	Provincia               string `json:"Provincia"`
	Remision                string `json:"Remisión"`
	Rotulo                  string `json:"Rótulo"`
	TipoVenta               string `json:"Tipo Venta"`
	PorcentajeBioEtanol     string `json:"% BioEtanol"`
	PorcentajeEsterMetilico string `json:"% Éster metílico"`
	IDEESS                  string `json:"IDEESS"`
	IDMunicipio             string `json:"IDMunicipio"`
	IDProvincia             string `json:"IDProvincia"`
	IDCCAA                  string `json:"IDCCAA"`
}

// PriceField pairs a normalized fuel type label with the raw price value
// carried by a station record.
type PriceField struct {
	FuelType string
	Value    string
}

// PriceFields returns every known fuel price field of the station in
// declaration order. The label set is a closed enumeration mapped to struct
// accessors; fields the upstream API may grow are not guessed at.
func (s *GasStation) PriceFields() []PriceField {
	return []PriceField{
		{FuelType: "Biodiesel", Value: s.PrecioBiodiesel},
		{FuelType: "Bioetanol", Value: s.PrecioBioetanol},
		{FuelType: "Gas Natural Comprimido", Value: s.PrecioGasNaturalComp},
		{FuelType: "Gas Natural Licuado", Value: s.PrecioGasNaturalLicuado},
		{FuelType: "Gases licuados del petróleo", Value: s.PrecioGasesLicuados},
		{FuelType: "Gasoleo A", Value: s.PrecioGasoleoA},
		{FuelType: "Gasoleo B", Value: s.PrecioGasoleoB},
		{FuelType: "Gasoleo Premium", Value: s.PrecioGasoleoPremium},
		{FuelType: "Gasolina 95 E10", Value: s.PrecioGasolina95E10},
		{FuelType: "Gasolina 95 E5", Value: s.PrecioGasolina95E5},
		{FuelType: "Gasolina 95 E5 Premium", Value: s.PrecioGasolina95E5Prem},
		{FuelType: "Gasolina 98 E10", Value: s.PrecioGasolina98E10},
		{FuelType: "Gasolina 98 E5", Value: s.PrecioGasolina98E5},
		{FuelType: "Hidrogeno", Value: s.PrecioHidrogeno},
	}
}
