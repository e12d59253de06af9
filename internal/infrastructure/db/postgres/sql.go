package postgres

const insertAdSQL = `
INSERT INTO ads (
  id, title, description, image_url, target_url, position, size,
  active, budget, start_date, end_date, priority,
  impressions, clicks, conversions,
  deleted_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`

const getAdSQL = `
SELECT id, title, description, image_url, target_url, position, size,
       active, budget, start_date, end_date, priority,
       impressions, clicks, conversions,
       deleted_at, created_at, updated_at
FROM ads WHERE id = $1
`

const updateAdSQL = `
UPDATE ads SET
  title=$2, description=$3, image_url=$4, target_url=$5, position=$6, size=$7,
  active=$8, budget=$9, start_date=$10, end_date=$11, priority=$12,
  deleted_at=$13, updated_at=$14
WHERE id=$1
`

const listEligibleAdsSQL = `
SELECT id, title, description, image_url, target_url, position, size,
       active, budget, start_date, end_date, priority,
       impressions, clicks, conversions,
       deleted_at, created_at, updated_at
FROM ads
WHERE active = TRUE
  AND deleted_at IS NULL
  AND position = $1
  AND (start_date IS NULL OR start_date <= $2)
  AND (end_date IS NULL OR end_date >= $2)
ORDER BY priority DESC, created_at ASC
`

const insertEventSQL = `
INSERT INTO ad_events (
  id, ad_id, event_type, ip, user_agent, page_url, referer,
  device, country, city, suspicious, fraud_reason, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`

// Counter increments are single-statement atomic adds. Never read-modify-write:
// concurrent recorders would lose increments.
const (
	incrImpressionsSQL = `UPDATE ads SET impressions = impressions + 1, updated_at = $2 WHERE id = $1`
	incrClicksSQL      = `UPDATE ads SET clicks = clicks + 1, updated_at = $2 WHERE id = $1`
	incrConversionsSQL = `UPDATE ads SET conversions = conversions + 1, updated_at = $2 WHERE id = $1`
)

// Fraud lookback queries. Both hit idx_ad_events_lookback; the detector only
// ever asks about a short window, never the full table.
const countRecentSQL = `
SELECT COUNT(*) FROM ad_events
WHERE ad_id = $1 AND ip = $2 AND event_type = $3 AND created_at >= $4
`

const existsRecentSQL = `
SELECT EXISTS (
  SELECT 1 FROM ad_events
  WHERE ad_id = $1 AND ip = $2 AND event_type = $3 AND created_at >= $4
)
`

const dailySeriesSQL = `
SELECT (created_at AT TIME ZONE 'UTC')::date AS day, event_type, suspicious, COUNT(*)
FROM ad_events
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1, 2, 3
ORDER BY 1
`

const byDeviceSQL = `
SELECT COALESCE(device, ''), event_type, suspicious, COUNT(*)
FROM ad_events
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1, 2, 3
`

const byCountrySQL = `
SELECT COALESCE(country, ''), event_type, suspicious, COUNT(*)
FROM ad_events
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1, 2, 3
`

const topAdsSQL = `
SELECT e.ad_id, a.title,
       COUNT(*) FILTER (WHERE e.event_type = 'impression' AND NOT e.suspicious),
       COUNT(*) FILTER (WHERE e.event_type = 'click'      AND NOT e.suspicious),
       COUNT(*) FILTER (WHERE e.event_type = 'conversion' AND NOT e.suspicious),
       COUNT(*) FILTER (WHERE e.suspicious)
FROM ad_events e
JOIN ads a ON a.id = e.ad_id
WHERE e.created_at >= $1 AND e.created_at < $2
GROUP BY e.ad_id, a.title
`

const adSeriesSQL = `
SELECT (created_at AT TIME ZONE 'UTC')::date AS day, event_type, suspicious, COUNT(*)
FROM ad_events
WHERE ad_id = $1 AND created_at >= $2 AND created_at < $3
GROUP BY 1, 2, 3
ORDER BY 1
`

// Reconciliation rewrites counters from the event table; corrective backstop
// for the increment-on-ingest protocol, not the primary mechanism.
const recountAdSQL = `
UPDATE ads SET
  impressions = (SELECT COUNT(*) FROM ad_events WHERE ad_id = $1 AND event_type = 'impression' AND NOT suspicious),
  clicks      = (SELECT COUNT(*) FROM ad_events WHERE ad_id = $1 AND event_type = 'click'      AND NOT suspicious),
  conversions = (SELECT COUNT(*) FROM ad_events WHERE ad_id = $1 AND event_type = 'conversion' AND NOT suspicious)
WHERE id = $1
`

const listAdIDsSQL = `SELECT id FROM ads WHERE deleted_at IS NULL`
