// internal/store/store.go
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/xkilldash9x/metaxg-cli/api/schemas"
	"github.com/xkilldash9x/metaxg-cli/internal/config"
	"github.com/xkilldash9x/metaxg-cli/internal/format"
)

// DBPool abstracts pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Store reads employee data from the HR replica. It is strictly read-only:
// registration outcomes never flow back into the database.
type Store struct {
	pool DBPool
	cfg  config.DatabaseConfig
	log  *zap.Logger
}

// New creates a store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		cfg:  cfg,
		log:  logger.Named("store"),
	}, nil
}

// hireColumns is the SELECT shared by both fetch paths. Text columns are
// coalesced so rows scan straight into strings; date columns stay nullable.
// The cost center is the second dot-segment of codsecao.
const hireColumns = `
	SELECT
		btrim(p.nome),
		COALESCE(p.cpf, ''),
		COALESCE(p.sexo, ''),
		COALESCE(p.naturalidade, ''),
		COALESCE(p.grauinstrucao, ''),
		COALESCE(p.estadocivil, ''),
		COALESCE(p.estadonatal, ''),
		p.dtnascimento,
		COALESCE(p.email, ''),
		COALESCE(p.telefone1, ''),
		COALESCE(pai.nome, 'NAO INFORMADO'),
		COALESCE(mae.nome, 'NAO INFORMADO'),
		COALESCE(p.orgemissorident, ''),
		COALESCE(p.ufcartident, ''),
		COALESCE(p.cartidentidade, ''),
		p.dtemissaoident,
		COALESCE(p.carteiratrab, ''),
		COALESCE(p.seriecarttrab, ''),
		COALESCE(p.ufcarttrab, ''),
		p.dtcarttrab,
		COALESCE(p.cep, ''),
		COALESCE(p.estado, ''),
		COALESCE(p.bairro, ''),
		COALESCE(p.rua, ''),
		COALESCE(p.numero, ''),
		COALESCE(f.pispasep, ''),
		f.dataadmissao,
		COALESCE(f.salario::text, ''),
		COALESCE(NULLIF(upper(btrim(fu.nome)), ''), 'NAO INFORMADO') AS descricao_cargo,
		COALESCE(f.codsecao, '')
	FROM pfunc f
	JOIN ppessoa p ON p.codigo = f.codpessoa
	LEFT JOIN pfuncao fu
		ON fu.codcoligada = f.codcoligada
		AND fu.codigo::text = f.codfuncao
	LEFT JOIN LATERAL (
		SELECT d.nome FROM pfdepend d
		WHERE d.codcoligada = f.codcoligada
			AND d.chapa::text = f.chapa
			AND d.grauparentesco::text = '6'
		ORDER BY d.nome LIMIT 1
	) pai ON true
	LEFT JOIN LATERAL (
		SELECT d.nome FROM pfdepend d
		WHERE d.codcoligada = f.codcoligada
			AND d.chapa::text = f.chapa
			AND d.grauparentesco::text = '7'
		ORDER BY d.nome LIMIT 1
	) mae ON true
`

const byAdmissionWindow = hireColumns + `
	WHERE f.dataadmissao::date BETWEEN $1 AND $2
		AND NULLIF(split_part(f.codsecao, '.', 2), '')::int = $3
		AND upper(btrim(p.nome)) <> ALL($4)
	ORDER BY f.dataadmissao ASC;
`

const byNameList = hireColumns + `
	WHERE upper(btrim(p.nome)) = ANY($1)
		AND NULLIF(split_part(f.codsecao, '.', 2), '')::int = $2
	ORDER BY f.dataadmissao ASC;
`

// FetchNewHires returns the employees admitted inside the date window, scoped
// to the configured cost center and minus the excluded names.
func (s *Store) FetchNewHires(ctx context.Context, from, to time.Time) ([]schemas.PersonRecord, error) {
	s.log.Info("Fetching new hires",
		zap.String("from", from.Format("2006-01-02")),
		zap.String("to", to.Format("2006-01-02")),
		zap.Int("cost_center", s.cfg.CostCenter))

	excluded := upperAll(s.cfg.ExcludedNames)
	rows, err := s.pool.Query(ctx, byAdmissionWindow, from, to, s.cfg.CostCenter, excluded)
	if err != nil {
		return nil, fmt.Errorf("failed to query new hires: %w", err)
	}
	return s.scanPeople(rows)
}

// FetchByNames returns the employees whose names match the manual input list,
// regardless of admission date.
func (s *Store) FetchByNames(ctx context.Context, names []string) ([]schemas.PersonRecord, error) {
	if len(names) == 0 {
		return nil, nil
	}
	s.log.Info("Fetching employees by name list", zap.Int("names", len(names)))

	rows, err := s.pool.Query(ctx, byNameList, upperAll(names), s.cfg.CostCenter)
	if err != nil {
		return nil, fmt.Errorf("failed to query by names: %w", err)
	}
	return s.scanPeople(rows)
}

func (s *Store) scanPeople(rows pgx.Rows) ([]schemas.PersonRecord, error) {
	defer rows.Close()

	var people []schemas.PersonRecord
	for rows.Next() {
		var (
			rec                                  schemas.PersonRecord
			birthDate, rgDate, ctpsDate, admDate *time.Time
			codSecao                             string
		)
		err := rows.Scan(
			&rec.Name, &rec.CPF, &rec.Sex, &rec.BirthCity,
			&rec.EducationCode, &rec.MaritalCode, &rec.BirthState,
			&birthDate, &rec.Email, &rec.Phone,
			&rec.FatherName, &rec.MotherName,
			&rec.RGIssuer, &rec.RGState, &rec.RGNumber, &rgDate,
			&rec.CTPSNumber, &rec.CTPSSeries, &rec.CTPSState, &ctpsDate,
			&rec.CEP, &rec.State, &rec.Neighborhood, &rec.Street, &rec.HouseNumber,
			&rec.PIS, &admDate, &rec.Salary, &rec.JobTitle, &codSecao,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee row: %w", err)
		}

		rec.CPF = format.DigitsOnly(rec.CPF)
		rec.BirthDate = derefTime(birthDate)
		rec.RGIssueDate = derefTime(rgDate)
		rec.CTPSDate = derefTime(ctpsDate)
		rec.AdmissionDate = derefTime(admDate)
		rec.CostCenter = costCenterOf(codSecao)

		people = append(people, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	s.log.Info("Employees fetched", zap.Int("total", len(people)))
	return people, nil
}

// costCenterOf extracts the cost center segment from a dotted section code
// like "01.125.003".
func costCenterOf(codSecao string) string {
	parts := strings.Split(codSecao, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
