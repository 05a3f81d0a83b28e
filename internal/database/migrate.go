package database

import "database/sql"

// migrations holds the schema statements executed on startup. They are
// idempotent (CREATE TABLE IF NOT EXISTS) so repeated boots are safe.
//
// Two constraints carry core invariants and must not be dropped:
//   - invitations.pending_key: a stored generated column that is non-NULL
//     only while status='PENDING'. Its unique index allows any number of
//     terminal invitations per (family, email) but at most one pending one.
//   - tasks uq_task_instance: at most one generated instance per
//     (recurring_task_id, due_day). Rows with a NULL recurring_task_id
//     (plain tasks and templates) never collide.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email         VARCHAR(320)    NOT NULL,
		password_hash VARCHAR(100)    NOT NULL,
		first_name    VARCHAR(100)    NOT NULL DEFAULT '',
		last_name     VARCHAR(100)    NOT NULL DEFAULT '',
		is_active     TINYINT(1)      NOT NULL DEFAULT 1,
		created_at    TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS families (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name       VARCHAR(200)    NOT NULL,
		created_by BIGINT UNSIGNED NOT NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_families_created_by (created_by),
		CONSTRAINT fk_families_creator FOREIGN KEY (created_by) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS family_members (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		family_id   BIGINT UNSIGNED NOT NULL,
		user_id     BIGINT UNSIGNED NOT NULL,
		role        ENUM('PRIMARY','ADMIN','MEMBER') NOT NULL,
		permissions VARCHAR(255)    NOT NULL DEFAULT '',
		joined_at   DATETIME        NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_member (family_id, user_id),
		KEY idx_members_user (user_id),
		CONSTRAINT fk_members_family FOREIGN KEY (family_id) REFERENCES families(id),
		CONSTRAINT fk_members_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS invitations (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		family_id   BIGINT UNSIGNED NOT NULL,
		email       VARCHAR(320)    NOT NULL,
		role        ENUM('ADMIN','MEMBER') NOT NULL,
		invited_by  BIGINT UNSIGNED NOT NULL,
		token       CHAR(64)        NOT NULL,
		status      ENUM('PENDING','ACCEPTED','EXPIRED','REVOKED') NOT NULL DEFAULT 'PENDING',
		expires_at  DATETIME        NOT NULL,
		accepted_at DATETIME        NULL,
		accepted_by BIGINT UNSIGNED NULL,
		created_at  TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		pending_key VARCHAR(360) GENERATED ALWAYS AS
			(IF(status = 'PENDING', CONCAT(family_id, ':', email), NULL)) STORED,
		PRIMARY KEY (id),
		UNIQUE KEY uq_inv_token (token),
		UNIQUE KEY uq_inv_pending (pending_key),
		KEY idx_inv_family (family_id),
		CONSTRAINT fk_inv_family FOREIGN KEY (family_id) REFERENCES families(id),
		CONSTRAINT fk_inv_inviter FOREIGN KEY (invited_by) REFERENCES users(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		family_id         BIGINT UNSIGNED NOT NULL,
		created_by        BIGINT UNSIGNED NOT NULL,
		title             VARCHAR(200)    NOT NULL,
		description       TEXT            NOT NULL,
		due_date          DATETIME        NULL,
		status            ENUM('PENDING','IN_PROGRESS','DONE') NOT NULL DEFAULT 'PENDING',
		priority          ENUM('LOW','MEDIUM','HIGH') NOT NULL DEFAULT 'MEDIUM',
		recurring         TINYINT(1)      NOT NULL DEFAULT 0,
		recurrence_rule   VARCHAR(100)    NULL,
		recurring_task_id BIGINT UNSIGNED NULL,
		completed_at      DATETIME        NULL,
		completed_by      BIGINT UNSIGNED NULL,
		created_at        TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at        TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		due_day DATE GENERATED ALWAYS AS
			(IF(recurring_task_id IS NULL, NULL, DATE(due_date))) STORED,
		PRIMARY KEY (id),
		UNIQUE KEY uq_task_instance (recurring_task_id, due_day),
		KEY idx_tasks_family (family_id),
		CONSTRAINT fk_tasks_family FOREIGN KEY (family_id) REFERENCES families(id),
		CONSTRAINT fk_tasks_template FOREIGN KEY (recurring_task_id) REFERENCES tasks(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		created_at TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id)
	) ENGINE=InnoDB`,
}

// Migrate executes the schema statements in order.
func Migrate(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
