package scanRepository

const (
	queryCreateSession = `
		INSERT INTO scan_sessions (
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		) VALUES (
			:id,
			:designer_id,
			:designer_name,
			:business_name,
			:client_id,
			:client_name,
			:client_gender,
			:guest_name,
			:guest_phone,
			:guest_gender,
			:link_code,
			:status,
			:is_quick_scan,
			:height_cm,
			:gender,
			:measurements,
			:confidence,
			:provenance,
			:accepted_anyway,
			:failure_reason,
			:created_at,
			:expires_at,
			:completed_at
		)
	`

	queryGetSessionByLinkCode = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE link_code = :link_code
	`

	queryGetSessionByID = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE id = :id
	`

	queryGetSessionsByDesignerID = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE designer_id = :designer_id
		ORDER BY created_at DESC
	`

	queryGetSessionsByClientID = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE designer_id = :designer_id
		  AND client_id = :client_id
		ORDER BY created_at DESC
	`

	queryGetSessionsByGuestPhone = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE designer_id = :designer_id
		  AND guest_phone = :guest_phone
		ORDER BY created_at DESC
	`

	queryMarkProcessing = `
		UPDATE scan_sessions
		SET status = 'processing'
		WHERE link_code = :link_code
		  AND status = 'pending'
		  AND expires_at > :now
	`

	queryCompleteSession = `
		UPDATE scan_sessions
		SET status = 'completed',
			height_cm = :height_cm,
			gender = :gender,
			measurements = :measurements,
			confidence = :confidence,
			provenance = :provenance,
			accepted_anyway = :accepted_anyway,
			guest_name = :guest_name,
			guest_phone = :guest_phone,
			guest_gender = :guest_gender,
			completed_at = :completed_at
		WHERE link_code = :link_code
		  AND status IN ('pending', 'processing')
		  AND expires_at > :completed_at
	`

	queryFailSession = `
		UPDATE scan_sessions
		SET status = 'failed',
			failure_reason = :failure_reason,
			completed_at = :completed_at
		WHERE link_code = :link_code
		  AND status IN ('pending', 'processing')
		  AND expires_at > :completed_at
	`

	queryPersistExpiry = `
		UPDATE scan_sessions
		SET status = 'expired'
		WHERE id = :id
		  AND status IN ('pending', 'processing')
		  AND expires_at <= :now
	`

	queryGetPurgeableSessions = `
		SELECT
			id,
			designer_id,
			designer_name,
			business_name,
			client_id,
			client_name,
			client_gender,
			guest_name,
			guest_phone,
			guest_gender,
			link_code,
			status,
			is_quick_scan,
			height_cm,
			gender,
			measurements,
			confidence,
			provenance,
			accepted_anyway,
			failure_reason,
			created_at,
			expires_at,
			completed_at
		FROM scan_sessions
		WHERE created_at < :cutoff
		  AND (status IN ('completed', 'failed', 'expired') OR expires_at <= :now)
		ORDER BY created_at ASC
	`

	queryDeletePurgeableSessions = `
		DELETE FROM scan_sessions
		WHERE created_at < :cutoff
		  AND (status IN ('completed', 'failed', 'expired') OR expires_at <= :now)
	`
)
