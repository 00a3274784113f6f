package reconcile

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

func representativeSpec() Spec[snapshot.RepresentativeRecord, models.Representative] {
	return Spec[snapshot.RepresentativeRecord, models.Representative]{
		Kind:      string(snapshot.KindRepresentatives),
		KeyColumn: "code",
		RecordKey: func(r snapshot.RepresentativeRecord) string { return r.Code },
		RowKey:    func(m *models.Representative) string { return m.Code },
		Build: func(_ context.Context, _ *gorm.DB, r snapshot.RepresentativeRecord, existing *models.Representative) (*models.Representative, bool, error) {
			row := &models.Representative{}
			if existing != nil {
				row.ID = existing.ID
			}
			row.Code = r.Code
			row.Name = r.Name
			row.Surname = r.Surname
			row.Email = r.Email
			row.BirthDate = r.BirthDate
			row.Photo = r.Photo
			return row, false, nil
		},
	}
}

// counterpartRow copies the stored row, or allocates an id inside band for a new one.
func counterpartRow(ctx context.Context, tx *gorm.DB, band models.Band, existing *models.Counterpart) (*models.Counterpart, error) {
	if existing != nil {
		row := *existing
		return &row, nil
	}
	id, err := band.NextID(ctx, tx)
	if err != nil {
		return nil, err
	}
	today := utils.Today()
	return &models.Counterpart{ID: id, CreatedDate: &today}, nil
}

func (p *Pass) partnerSpec() Spec[snapshot.PartnerRecord, models.Counterpart] {
	return Spec[snapshot.PartnerRecord, models.Counterpart]{
		Kind:      string(snapshot.KindPartners),
		KeyColumn: "code",
		Scope:     models.BandPartner.Scope(),
		RecordKey: func(r snapshot.PartnerRecord) string { return r.Code },
		RowKey:    func(m *models.Counterpart) string { return m.Code },
		Build: func(ctx context.Context, tx *gorm.DB, r snapshot.PartnerRecord, existing *models.Counterpart) (*models.Counterpart, bool, error) {
			owner, degraded, err := p.index.Owner(r.OwnerCode, r.OwnerRef)
			if err != nil {
				return nil, false, err
			}
			if degraded {
				p.degraded++
			}
			row, err := counterpartRow(ctx, tx, models.BandPartner, existing)
			if err != nil {
				return nil, false, err
			}
			row.Code = r.Code
			row.Name = r.Name
			row.Address = r.Address
			row.Province = r.Province
			row.RepresentativeCode = owner.Code
			row.RepresentativeID = &owner.ID
			return row, false, nil
		},
	}
}

func (p *Pass) memberSpec() Spec[snapshot.MemberRecord, models.Counterpart] {
	return Spec[snapshot.MemberRecord, models.Counterpart]{
		Kind:      string(snapshot.KindMembers),
		KeyColumn: "code",
		Scope:     models.BandMember.Scope(),
		RecordKey: func(r snapshot.MemberRecord) string { return r.NationalID },
		RowKey:    func(m *models.Counterpart) string { return m.Code },
		Build: func(ctx context.Context, tx *gorm.DB, r snapshot.MemberRecord, existing *models.Counterpart) (*models.Counterpart, bool, error) {
			owner, degraded, err := p.index.Owner(r.OwnerCode, 0)
			if err != nil {
				return nil, false, err
			}
			if degraded {
				p.degraded++
			}
			row, err := counterpartRow(ctx, tx, models.BandMember, existing)
			if err != nil {
				return nil, false, err
			}
			row.Code = r.NationalID
			row.NationalID = r.NationalID
			row.Name = r.Name
			row.Surname = r.Surname
			row.Phone = r.Phone
			row.Email = r.Email
			row.BirthDate = r.BirthDate
			row.Photo = r.Photo
			row.RepresentativeCode = owner.Code
			row.RepresentativeID = &owner.ID
			return row, false, nil
		},
		After: appendPurchases,
	}
}

// appendPurchases adds the member's purchase lines that are not stored yet.
func appendPurchases(ctx context.Context, tx *gorm.DB, r snapshot.MemberRecord, member *models.Counterpart, res *Result) error {
	const op = "append purchase history"
	for _, p := range r.Purchases {
		if p.ShipmentID == "" || p.ArticleCode == "" {
			res.Skipped++
			continue
		}
		count, err := utils.ResourceCountWhere[models.PurchaseHistory](ctx, tx,
			"counterpart_code = ? AND shipment_id = ? AND article_code = ?", member.Code, p.ShipmentID, p.ArticleCode)
		if err != nil {
			return utils.StorageError(op, err)
		}
		if count > 0 {
			continue
		}
		memberID := member.ID
		line := models.PurchaseHistory{
			ShipmentID:         p.ShipmentID,
			CounterpartCode:    member.Code,
			CounterpartID:      &memberID,
			RepresentativeCode: member.RepresentativeCode,
			RepresentativeID:   member.RepresentativeID,
			ArticleCode:        p.ArticleCode,
			ArticleName:        p.ArticleName,
			PurchaseDate:       p.Date,
			Quantity:           p.Quantity,
			Shipped:            p.Shipped,
			UnitPrice:          p.UnitPrice,
			Photo:              p.Photo,
			Fulfilled:          p.Fulfilled,
		}
		if err := tx.Create(&line).Error; err != nil {
			return utils.StorageError(op, err)
		}
		res.Inserted++
	}
	return nil
}

func catalogSpec() Spec[snapshot.CatalogRecord, models.CatalogItem] {
	return Spec[snapshot.CatalogRecord, models.CatalogItem]{
		Kind:      string(snapshot.KindCatalog),
		KeyColumn: "article_code",
		RecordKey: func(r snapshot.CatalogRecord) string { return r.ArticleCode },
		RowKey:    func(m *models.CatalogItem) string { return m.ArticleCode },
		Build: func(_ context.Context, _ *gorm.DB, r snapshot.CatalogRecord, existing *models.CatalogItem) (*models.CatalogItem, bool, error) {
			row := &models.CatalogItem{
				ArticleCode: r.ArticleCode,
				Name:        r.Name,
				UnitPrice:   r.UnitPrice,
				Stock:       r.Stock,
				ImageName:   r.Image,
			}
			// a feed without an image keeps the one resolved locally
			if row.ImageName == "" && existing != nil {
				row.ImageName = existing.ImageName
			}
			return row, false, nil
		},
	}
}

func (p *Pass) credentialSpec() Spec[snapshot.CredentialRecord, models.Credential] {
	return Spec[snapshot.CredentialRecord, models.Credential]{
		Kind:      string(snapshot.KindCredentials),
		KeyColumn: "login",
		RecordKey: func(r snapshot.CredentialRecord) string { return r.Login },
		RowKey:    func(m *models.Credential) string { return m.Login },
		Build: func(_ context.Context, _ *gorm.DB, r snapshot.CredentialRecord, existing *models.Credential) (*models.Credential, bool, error) {
			owner, degraded, err := p.index.Owner(r.RepresentativeCode, r.RepresentativeRef)
			if err != nil {
				return nil, false, err
			}
			if degraded {
				p.degraded++
			}
			row := &models.Credential{
				Login:              r.Login,
				RepresentativeCode: owner.Code,
				RepresentativeID:   &owner.ID,
			}
			switch {
			case r.Password == "" && existing == nil:
				p.logger.WithField("login", r.Login).Warn("credential without a password skipped")
				return nil, true, nil
			case r.Password == "":
				row.PasswordHash = existing.PasswordHash
			case utils.IsPasswordHash(r.Password):
				row.PasswordHash = r.Password
			default:
				hash, err := utils.HashPassword(r.Password)
				if err != nil {
					return nil, false, err
				}
				row.PasswordHash = string(hash)
			}
			return row, false, nil
		},
	}
}

// appendAgenda stores visits that are new and refreshes the description and status of those
// already stored. Visits are never deleted by an import.
func (p *Pass) appendAgenda(ctx context.Context, tx *gorm.DB, records []snapshot.VisitRecord) (Result, error) {
	const op = "append agenda"
	res := Result{Kind: string(snapshot.KindAgenda)}
	tx = tx.WithContext(ctx)
	for _, r := range records {
		owner, ok := p.index.ByCode(r.OwnerCode)
		if !ok || r.Date == "" {
			res.Skipped++
			p.logger.WithFields(logrus.Fields{"ordinal": r.Ordinal, "owner_code": r.OwnerCode}).
				Warn("visit without a stored representative or date skipped")
			continue
		}
		member, err := utils.FetchModelByKey[models.Counterpart](ctx, tx, "code", r.CounterpartCode)
		if err != nil || member.Band() != models.BandMember {
			res.Skipped++
			p.logger.WithFields(logrus.Fields{"ordinal": r.Ordinal, "counterpart_code": r.CounterpartCode}).
				Warn("visit for an unknown member skipped")
			continue
		}
		status, err := models.ParseVisitStatus(r.Status)
		if err != nil {
			status = models.VisitStatusPending
			res.Degraded++
		}

		var stored models.Visit
		err = tx.Where("visit_date = ? AND visit_time = ? AND owner_code = ? AND counterpart_code = ?",
			r.Date, r.Time, owner.Code, member.Code).Limit(1).Find(&stored).Error
		if err != nil {
			return res, utils.StorageError(op, err)
		}
		if stored.ID != 0 {
			err = tx.Model(&stored).Updates(map[string]any{"description": r.Description, "status": status}).Error
			if err != nil {
				return res, utils.StorageError(op, err)
			}
			res.Updated++
			continue
		}

		ownerID, memberID := owner.ID, member.ID
		visit := models.Visit{
			VisitDate:       r.Date,
			VisitTime:       r.Time,
			OwnerCode:       owner.Code,
			OwnerID:         &ownerID,
			CounterpartCode: member.Code,
			CounterpartID:   &memberID,
			Description:     r.Description,
			Status:          status,
		}
		if err := tx.Create(&visit).Error; err != nil {
			return res, utils.StorageError(op, err)
		}
		res.Inserted++
	}
	return res, nil
}
