package predict

import (
	"math"
)

// Row is the flat per-band record written to Parquet and ClickHouse.
type Row struct {
	Time          int64   `parquet:"time" ch:"time"` // Unix seconds
	TxLat         float64 `parquet:"tx_lat" ch:"tx_lat"`
	TxLon         float64 `parquet:"tx_lon" ch:"tx_lon"`
	RxLat         float64 `parquet:"rx_lat" ch:"rx_lat"`
	RxLon         float64 `parquet:"rx_lon" ch:"rx_lon"`
	Distance      float64 `parquet:"distance_km" ch:"distance_km"`
	Azimuth       float64 `parquet:"azimuth" ch:"azimuth"`
	SSN           float32 `parquet:"ssn" ch:"ssn"`
	Band          int32   `parquet:"band" ch:"band"`
	BandName      string  `parquet:"band_name" ch:"band_name"`
	Frequency     float64 `parquet:"frequency" ch:"frequency"`
	Status        string  `parquet:"status" ch:"status"`
	Reason        string  `parquet:"reason" ch:"reason"`
	Mode          string  `parquet:"mode" ch:"mode"`
	Hops          int32   `parquet:"hops" ch:"hops"`
	MUF           float64 `parquet:"muf" ch:"muf"`
	FOT           float64 `parquet:"fot" ch:"fot"`
	HPF           float64 `parquet:"hpf" ch:"hpf"`
	Elevation     float64 `parquet:"elevation" ch:"elevation"` // degrees
	Skip          float64 `parquet:"skip_km" ch:"skip_km"`     // -1 when no hop range carries the frequency
	CircuitMUF    float64 `parquet:"circuit_muf" ch:"circuit_muf"`
	LowConfidence bool    `parquet:"low_confidence" ch:"low_confidence"`
}

// Rows flattens the prediction into one row per band.
func (p *Prediction) Rows() []Row {
	out := make([]Row, 0, len(p.Bands))
	for _, br := range p.Bands {
		sol := br.Solution
		r := Row{
			Time:          p.Time.Unix(),
			TxLat:         p.Path.Tx.LatDeg(),
			TxLon:         p.Path.Tx.LonDeg(),
			RxLat:         p.Path.Rx.LatDeg(),
			RxLon:         p.Path.Rx.LonDeg(),
			Distance:      p.Path.Distance,
			Azimuth:       p.Path.Azimuth,
			SSN:           float32(p.SSN),
			Band:          br.Band.ID,
			BandName:      br.Band.Name,
			Frequency:     sol.Frequency,
			Status:        sol.Status.String(),
			Reason:        sol.Reason.String(),
			Mode:          sol.ModeName(),
			MUF:           sol.MUF,
			FOT:           sol.FOT,
			HPF:           sol.HPF,
			Elevation:     sol.Elevation * 180 / math.Pi,
			Skip:          sol.SkipDistance,
			CircuitMUF:    p.MUF,
			LowConfidence: sol.LowConfidence,
		}
		if m := sol.Best(); m != nil {
			r.Hops = int32(m.Hops)
		}
		if math.IsInf(r.Skip, 0) || math.IsNaN(r.Skip) {
			r.Skip = -1
		}
		out = append(out, r)
	}
	return out
}

// SweepRows flattens a sweep.
func SweepRows(preds []*Prediction) []Row {
	var out []Row
	for _, p := range preds {
		out = append(out, p.Rows()...)
	}
	return out
}
