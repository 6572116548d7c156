package rnc

import (
	"errors"

	"github.com/Alonza0314/free-rnc/model"
)

var ErrAdmissionRejected = errors.New("admission rejected")

type AdmissionControl struct {
	ulCapacity    float64
	dlCapacity    float64
	loadThreshold float64

	sharedCapacity float64
	sharedOverhead float64

	ueUlCapacity float64
}

func NewAdmissionControl(config model.AdmissionIE) AdmissionControl {
	return AdmissionControl{
		ulCapacity:    float64(config.UlCapacity),
		dlCapacity:    float64(config.DlCapacity),
		loadThreshold: config.LoadThreshold,

		sharedCapacity: float64(config.SharedCapacity),
		sharedOverhead: config.SharedOverhead,

		ueUlCapacity: float64(config.UeUlCapacity),
	}
}

func (a AdmissionControl) threshold(direction Direction) float64 {
	if direction == Uplink {
		return a.ulCapacity * a.loadThreshold
	}
	return a.dlCapacity * a.loadThreshold
}

// AdmitDedicated reports whether a dedicated bearer of rate fits the cell in
// the direction.
func (a AdmissionControl) AdmitDedicated(cell *CellContext, direction Direction, rate uint32) bool {
	if rate == 0 {
		return true
	}
	return cell.AllocatedRate(direction)+float64(rate) <= a.threshold(direction)
}

func (a AdmissionControl) AdmitShared(cell *CellContext, rate uint32) bool {
	if rate == 0 {
		return true
	}
	return cell.SharedRate()+float64(rate)*a.sharedOverhead <= a.sharedCapacity
}

func (a AdmissionControl) AdmitUe(allocatedUl float64, rate uint32) bool {
	return allocatedUl+float64(rate) <= a.ueUlCapacity
}
