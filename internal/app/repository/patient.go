package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

func (r *Repository) CreatePatient(p *ds.Patient) error {
	return r.db.Create(p).Error
}

func (r *Repository) FindPatient(ctx context.Context, id uint) (*ds.Patient, error) {
	var p ds.Patient
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetPatientByUserID(userID uint) (*ds.Patient, error) {
	var p ds.Patient
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) UpdatePatientFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&ds.Patient{}).Where("id = ?", id).Updates(fields).Error
}

// SetPatientNeurologists replaces the patient's authorized neurologists
// with the given set, mirroring the dashboard's PUT semantics.
func (r *Repository) SetPatientNeurologists(patientID uint, neurologistIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("patient_id = ?", patientID).Delete(&ds.PatientNeurologist{}).Error; err != nil {
			return err
		}
		for _, nid := range neurologistIDs {
			link := ds.PatientNeurologist{PatientID: patientID, NeurologistID: nid}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) GetPatientNeurologists(patientID uint) ([]ds.Neurologist, error) {
	var neurologists []ds.Neurologist
	err := r.db.Table("neurologists").
		Joins("JOIN patient_neurologists ON patient_neurologists.neurologist_id = neurologists.id").
		Where("patient_neurologists.patient_id = ?", patientID).
		Preload("User").
		Find(&neurologists).Error
	if err != nil {
		return nil, err
	}
	return neurologists, nil
}

func (r *Repository) CreateNeurologist(n *ds.Neurologist) error {
	return r.db.Create(n).Error
}

func (r *Repository) GetNeurologistByUserID(userID uint) (*ds.Neurologist, error) {
	var n ds.Neurologist
	if err := r.db.Preload("User").Where("user_id = ?", userID).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) GetNeurologistByID(id uint) (*ds.Neurologist, error) {
	var n ds.Neurologist
	if err := r.db.Preload("User").Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *Repository) ListNeurologists() ([]ds.Neurologist, error) {
	var neurologists []ds.Neurologist
	if err := r.db.Preload("User").Find(&neurologists).Error; err != nil {
		return nil, err
	}
	return neurologists, nil
}

// ListNeurologistPatients returns the visible patients associated with
// the neurologist. Both the visibility flag and the association are
// required for read access.
func (r *Repository) ListNeurologistPatients(neurologistID uint) ([]ds.Patient, error) {
	var patients []ds.Patient
	err := r.db.Table("patients").
		Joins("JOIN patient_neurologists ON patient_neurologists.patient_id = patients.id").
		Where("patient_neurologists.neurologist_id = ? AND patients.visibility = ?", neurologistID, true).
		Preload("User").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

// IsNeurologistAuthorized reports whether the neurologist may read the
// patient's sessions.
func (r *Repository) IsNeurologistAuthorized(neurologistID, patientID uint) (bool, error) {
	var patient ds.Patient
	if err := r.db.Where("id = ?", patientID).First(&patient).Error; err != nil {
		return false, err
	}
	if !patient.Visibility {
		return false, nil
	}
	var count int64
	err := r.db.Model(&ds.PatientNeurologist{}).
		Where("patient_id = ? AND neurologist_id = ?", patientID, neurologistID).
		Count(&count).Error
	return count > 0, err
}
